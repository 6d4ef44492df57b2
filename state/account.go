package state

import (
	"github.com/cometbft/cometbft/crypto/ed25519"
)

// Account is a keyed participant in the token ledger: creator, backer or
// any other caller. Balances hold spendable funds per token denom; escrow
// custody is tracked on the project record, not here.
type Account struct {
	Index    uint64            `json:"index"`
	PubKey   []byte            `json:"pubKey"`
	Nonce    uint64            `json:"nonce"`
	Name     string            `json:"name"`
	Balances map[string]uint64 `json:"balances"`
}

func (a *Account) Clone() *Account {
	n := &Account{
		Index: a.Index,
		Nonce: a.Nonce,
		Name:  a.Name,
	}
	if a.PubKey != nil {
		n.PubKey = make([]byte, len(a.PubKey))
		copy(n.PubKey, a.PubKey)
	}
	if a.Balances != nil {
		n.Balances = make(map[string]uint64, len(a.Balances))
		for k, v := range a.Balances {
			n.Balances[k] = v
		}
	}
	return n
}

func (a *Account) SetPubKey(pkey []byte) {
	if a.PubKey == nil {
		a.PubKey = make([]byte, len(pkey))
	}
	copy(a.PubKey, pkey)
}

func (a *Account) Balance(token string) uint64 {
	return a.Balances[token]
}

func (a *Account) AddrBytes() []byte {
	pk := ed25519.PubKey(a.PubKey[:])
	return pk.Address()[:]
}

func (a *Account) Address() string {
	pk := ed25519.PubKey(a.PubKey[:])
	return pk.Address().String()
}

func (a *Account) Verify(msg []byte, sigs [][]byte) (succ bool) {
	if len(sigs) != 1 {
		return false
	}
	pk := ed25519.PubKey(a.PubKey[:])
	return pk.VerifySignature(msg, sigs[0])
}
