package quote

import "strings"

// CustomerType classifies the customer for display and VAT purposes.
type CustomerType string

const (
	CustomerUnknown  CustomerType = ""
	CustomerPrivate  CustomerType = "private"
	CustomerBusiness CustomerType = "business"
)

// ParseCustomerType prefers the explicit classifier code delivered by the CRM.
// When the code is missing, the free-text label is inspected; this substring
// check is a fallback for records created before the code existed.
func ParseCustomerType(code, label string) CustomerType {
	switch strings.ToLower(strings.TrimSpace(code)) {
	case "private", "privat":
		return CustomerPrivate
	case "business", "company", "firma":
		return CustomerBusiness
	}

	l := strings.ToLower(strings.TrimSpace(label))
	switch {
	case l == "":
		return CustomerUnknown
	case strings.Contains(l, "firma"), strings.Contains(l, "gewerb"), strings.Contains(l, "business"):
		return CustomerBusiness
	case strings.Contains(l, "privat"), strings.Contains(l, "private"):
		return CustomerPrivate
	}
	return CustomerUnknown
}

func (t CustomerType) IsBusiness() bool { return t == CustomerBusiness }
func (t CustomerType) IsPrivate() bool  { return t == CustomerPrivate }
