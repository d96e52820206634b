package gamedto

type CreateSessionRequest struct {
	PlayerID   string `json:"playerId"`
	Difficulty string `json:"difficulty,omitempty"`
	BoardSize  int    `json:"boardSize,omitempty"`
}

type JoinSessionRequest struct {
	PlayerID string `json:"playerId"`
}

type MoveRequest struct {
	PlayerID string `json:"playerId"`
	X        int    `json:"x"`
	Y        int    `json:"y"`
	Pass     bool   `json:"pass"`
}

type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
