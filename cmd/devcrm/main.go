// Command devcrm serves fixture quotes and bookings on the CRM backend routes
// so the portal can run locally without a CRM instance.
package main

import (
	"log"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"kundenportal/internal/crm/crmtest"
)

func main() {
	addr := os.Getenv("DEVCRM_ADDR")
	if addr == "" {
		addr = ":8090"
	}
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.DebugMode)
	}

	backend := crmtest.New()
	crmtest.Seed(backend)

	log.Printf("devcrm listening addr=%s", addr)
	log.Printf("devcrm quotes: /angebot/%s /angebot/%s  booking: /kunde/%s",
		crmtest.SingleToken, crmtest.GroupToken, crmtest.BookingToken)

	if err := http.ListenAndServe(addr, backend.Handler()); err != nil {
		log.Fatal(err)
	}
}
