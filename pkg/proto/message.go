package proto

// Client message types on the challenge stream.
const (
	TypeFrame    = "frame"
	TypeGenerate = "generate"
)

// Server message types on the challenge stream.
const (
	TypeChallenge = "challenge"
	TypeResult    = "result"
	TypeError     = "error"
)

// ClientToServerMessage represents a message from the client to the server.
type ClientToServerMessage struct {
	Type  string `json:"type" validate:"required,oneof=frame generate"`
	Image string `json:"image,omitempty" validate:"required_if=Type frame"`
}

// ServerToClientMessage represents a message from the server to the client.
type ServerToClientMessage struct {
	Type            string `json:"type" validate:"required"`
	Success         bool   `json:"success,omitempty"`
	TargetNumber    int    `json:"target_number,omitempty"`
	DetectedFingers int    `json:"detected_fingers"`
	Message         string `json:"message,omitempty"`
	Reason          string `json:"reason,omitempty"`
}
