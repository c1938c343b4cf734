// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package wallet

var BusinessPaths = []string{
	"business",
	"business.id",
	"business.asset",
}

var BridgechainPaths = []string{
	"business.bridgechains",
}

type BusinessAsset struct {
	Name       string
	Website    string
	Vat        string
	Repository string
}

type BridgechainAsset struct {
	Name        string
	GenesisHash string
	SeedNodes   []string
	Repository  string
}

// Business is a registered business and the bridgechains it operates,
// keyed by genesis hash.
type Business struct {
	ID           uint64
	Asset        BusinessAsset
	Bridgechains map[string]*BridgechainAsset
}

func (b *Business) Clone() Attribute {
	c := &Business{
		ID:    b.ID,
		Asset: b.Asset,
	}
	if len(b.Bridgechains) > 0 {
		c.Bridgechains = make(map[string]*BridgechainAsset, len(b.Bridgechains))
		for hash, bc := range b.Bridgechains {
			cp := *bc
			cp.SeedNodes = append([]string(nil), bc.SeedNodes...)
			c.Bridgechains[hash] = &cp
		}
	}
	return c
}

func (b *Business) AddBridgechain(bc *BridgechainAsset) {
	if b.Bridgechains == nil {
		b.Bridgechains = map[string]*BridgechainAsset{}
	}
	b.Bridgechains[bc.GenesisHash] = bc
}

func (b *Business) RemoveBridgechain(genesisHash string) bool {
	if _, ok := b.Bridgechains[genesisHash]; !ok {
		return false
	}
	delete(b.Bridgechains, genesisHash)
	if len(b.Bridgechains) == 0 {
		b.Bridgechains = nil
	}
	return true
}
