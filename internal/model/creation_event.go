package model

// CreationEvent is a decoded factory PoolCreated log. Addresses are
// normalized to lowercase hex at decode time.
type CreationEvent struct {
	Token0      string `json:"token0"`
	Token1      string `json:"token1"`
	Fee         uint32 `json:"fee"`
	Pool        string `json:"pool"`
	BlockNumber uint64 `json:"block_number"`
}

// InvolvesToken reports whether either side of the pair equals the given
// lowercase token address.
func (e CreationEvent) InvolvesToken(token string) bool {
	return e.Token0 == token || e.Token1 == token
}
