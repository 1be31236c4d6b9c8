package ws

import "encoding/json"

// Envelope is every frame on the socket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// client → server
type PlayerPayload struct {
	ID string `json:"id"` // optional; must be the authenticated player
}

// server → client
type EnergyPayload struct {
	Energy int64 `json:"energy"`
}

type CoinsPayload struct {
	Balance int64 `json:"balance"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

func encode(msgType string, payload any) ([]byte, error) {
	env := Envelope{Type: msgType}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		env.Payload = raw
	}
	return json.Marshal(env)
}
