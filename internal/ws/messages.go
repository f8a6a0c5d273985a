package ws

// ──────────────────────────── Inbound request DTOs ───────────────────────────

// joinRequest is the payload of "join".
type joinRequest struct {
	Username string `json:"username" validate:"required"`
	Room     string `json:"room"     validate:"required"`
}

// chatRequest is the payload of "chat". Only the field's presence is checked.
type chatRequest struct {
	Message *string `json:"message" validate:"required"`
}
