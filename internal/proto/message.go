package proto

// Keepalive is the literal control frame a client sends to stay connected.
const Keepalive = "ping"

// WSPathPrefix is prepended to a connection token to form the upgrade path.
const WSPathPrefix = "/ws/"

// JoinData asks the server to move the connection to another game.
type JoinData struct {
	GameID int64 `json:"game_id"`
}

// RegisterRequest is the body of POST /register.
type RegisterRequest struct {
	UserID *int64 `json:"user_id" binding:"required,min=0"`
	GameID *int64 `json:"game_id" binding:"required,min=0"`
}

// RegisterResponse carries the path the client opens its websocket on.
type RegisterResponse struct {
	URL   string `json:"url"`
	Token string `json:"token"`
}

// BroadcastRequest is the body of POST /broadcast. UserID, when present,
// limits delivery to that user's connections in the game.
type BroadcastRequest struct {
	GameID  *int64  `json:"game_id" binding:"required,min=0"`
	UserID  *int64  `json:"user_id,omitempty" binding:"omitempty,min=0"`
	Message *string `json:"message" binding:"required"`
}

// BroadcastResponse reports the local fan-out after the bus accepted the message.
type BroadcastResponse struct {
	Matched   int `json:"matched"`
	Delivered int `json:"delivered"`
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}
