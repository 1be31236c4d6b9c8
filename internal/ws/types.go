package ws

const (
	// client - server
	MsgChangeBalance = "changeBalance"
	MsgRecoverEnergy = "recoverEnergy"
	MsgPing          = "ping"

	// server - client
	MsgUpdateEnergy = "updateEnergy"
	MsgUpdateCoins  = "updateCoins"
	MsgPong         = "pong"
	MsgError        = "error"
)
