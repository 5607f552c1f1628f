package models

// Flash levels, mirrored by the alert styles in the templates.
const (
	FlashSuccess = "success"
	FlashInfo    = "info"
	FlashDanger  = "danger"
)

// Flash is a one-time notification attached to a session and consumed
// on the next rendered response.
type Flash struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}
