package enums

// Intent is the coarse classification of a user turn.
type Intent string

const (
	IntentConfirm Intent = "confirm"
	IntentCancel  Intent = "cancel"
	IntentNeither Intent = "neither"
)

// String implements fmt.Stringer.
func (i Intent) String() string {
	return string(i)
}
