package quote

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelection_InitialisesOneEntryPerDay(t *testing.T) {
	s := NewSelection([]int64{1, 2, 3, 2})
	assert.Equal(t, 3, s.Len())
	for _, id := range []int64{1, 2, 3} {
		d, ok := s.Get(id)
		assert.True(t, ok)
		assert.Equal(t, Undecided, d)
	}
}

func TestSelection_RadioSemantics(t *testing.T) {
	s := NewSelection([]int64{1})
	require.NoError(t, s.Set(1, Accepted))
	require.NoError(t, s.Set(1, Rejected))
	d, _ := s.Get(1)
	assert.Equal(t, Rejected, d)
	assert.Equal(t, 1, s.Len())
}

func TestSelection_NoWayBackToUndecided(t *testing.T) {
	s := NewSelection([]int64{1})
	require.NoError(t, s.Set(1, Accepted))
	assert.ErrorIs(t, s.Set(1, Undecided), ErrInvalidDecision)
	d, _ := s.Get(1)
	assert.Equal(t, Accepted, d)
}

func TestSelection_UnknownDay(t *testing.T) {
	s := NewSelection([]int64{1})
	assert.ErrorIs(t, s.Set(2, Accepted), ErrUnknownDay)
	assert.Equal(t, 1, s.Len())
}

func TestSelection_Validate(t *testing.T) {
	s := NewSelection([]int64{1, 2})
	require.NoError(t, s.Set(1, Accepted))

	err := s.Validate()
	assert.ErrorIs(t, err, ErrSelectionIncomplete)
	var inc *IncompleteSelectionError
	require.True(t, errors.As(err, &inc))
	assert.Equal(t, []int64{2}, inc.Undecided)

	require.NoError(t, s.Set(2, Rejected))
	assert.NoError(t, s.Validate())
	assert.Equal(t, []int64{1}, s.Accepted())

	require.NoError(t, s.Set(1, Rejected))
	assert.ErrorIs(t, s.Validate(), ErrNothingAccepted)
}

// Submission is blocked iff some entry is undecided or none is accepted.
func TestSelection_GateProperty(t *testing.T) {
	decisions := []Decision{Undecided, Accepted, Rejected}
	// all assignments for three days
	for a := 0; a < 3; a++ {
		for b := 0; b < 3; b++ {
			for c := 0; c < 3; c++ {
				s := NewSelection([]int64{1, 2, 3})
				assigned := []Decision{decisions[a], decisions[b], decisions[c]}
				anyUndecided, anyAccepted := false, false
				for i, d := range assigned {
					if d == Undecided {
						anyUndecided = true
						continue
					}
					if d == Accepted {
						anyAccepted = true
					}
					require.NoError(t, s.Set(int64(i+1), d))
				}
				blocked := s.Validate() != nil
				assert.Equal(t, anyUndecided || !anyAccepted, blocked, "%v", assigned)
				assert.Equal(t, 3, s.Len())
			}
		}
	}
}

func TestSelection_JSONRoundTrip(t *testing.T) {
	s := NewSelection([]int64{3, 1})
	require.NoError(t, s.Set(1, Accepted))

	b, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"lead_id":3,"decision":"undecided"},{"lead_id":1,"decision":"accepted"}]`, string(b))

	var restored Selection
	require.NoError(t, json.Unmarshal(b, &restored))
	assert.Equal(t, s.Entries(), restored.Entries())
}

func TestParseDecision(t *testing.T) {
	d, err := ParseDecision("Accepted")
	require.NoError(t, err)
	assert.Equal(t, Accepted, d)

	_, err = ParseDecision("maybe")
	assert.ErrorIs(t, err, ErrInvalidDecision)
}
