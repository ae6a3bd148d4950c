package swaporder

import (
	"encoding/binary"
	"math/big"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// Digest returns the deterministic hash of every order field bound to the
// settlement protocol's domain separator. It depends on nothing but its
// inputs, so placement and closure can independently re-derive and compare
// identifiers as a defense against UID confusion.
func (o *Order) Digest(domainSeparator [32]byte) [32]byte {
	buf := make([]byte, 0, 256)
	buf = append(buf, domainSeparator[:]...)
	buf = append(buf, o.SellToken.Bytes()...)
	buf = append(buf, o.BuyToken.Bytes()...)
	buf = append(buf, o.Receiver.Bytes()...)
	buf = appendAmount(buf, o.SellAmount)
	buf = appendAmount(buf, o.BuyAmount)
	buf = binary.BigEndian.AppendUint64(buf, uint64(o.ValidTo))
	buf = append(buf, o.AppData[:]...)
	buf = appendAmount(buf, o.FeeAmount)
	buf = appendString(buf, string(o.Kind))
	if o.PartiallyFillable {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}
	buf = appendString(buf, string(o.SellTokenBalance))
	buf = appendString(buf, string(o.BuyTokenBalance))

	var digest [32]byte
	copy(digest[:], ethcrypto.Keccak256(buf))
	return digest
}

// ComputeOrderUID derives the settlement identifier for an order: the domain
// bound digest followed by the receiver and the expiry timestamp.
func ComputeOrderUID(o *Order, domainSeparator [32]byte) OrderUID {
	var uid OrderUID
	digest := o.Digest(domainSeparator)
	copy(uid[:32], digest[:])
	copy(uid[32:52], o.Receiver.Bytes())
	binary.BigEndian.PutUint32(uid[52:], uint32(o.ValidTo))
	return uid
}

func appendAmount(buf []byte, v *big.Int) []byte {
	var word [32]byte
	if v != nil && v.Sign() > 0 {
		v.FillBytes(word[:])
	}
	return append(buf, word[:]...)
}

func appendString(buf []byte, s string) []byte {
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(s)))
	return append(buf, s...)
}
