package types

import (
	"bytes"
	"testing"

	"github.com/tos-network/ctoken/common"
)

func bundleFuzzSeedRaw() []byte {
	b := testBundle(common.Address{1}, common.Address{2})
	b.Signatures = []BundleSignature{{Signer: common.Address{1}, Signature: common.Signature{3}}}
	raw, err := EncodeBundle(b)
	if err != nil {
		panic(err)
	}
	return raw
}

func FuzzDecodeBundle(f *testing.F) {
	f.Add([]byte{0xc0})
	f.Add(bundleFuzzSeedRaw())
	f.Add([]byte{0xf8, 0x01})

	f.Fuzz(func(t *testing.T, input []byte) {
		if len(input) > 32*1024 {
			return
		}
		b, err := DecodeBundle(input)
		if err != nil {
			return
		}
		raw, err := EncodeBundle(b)
		if err != nil {
			t.Fatalf("re-encode decoded bundle: %v", err)
		}
		again, err := DecodeBundle(raw)
		if err != nil {
			t.Fatalf("decode re-encoded bundle: %v", err)
		}
		if again.ID() != b.ID() || len(again.Instructions) != len(b.Instructions) {
			t.Fatalf("bundle changed across re-encoding")
		}
		msg1, err1 := b.Message()
		msg2, err2 := again.Message()
		if err1 != nil || err2 != nil || !bytes.Equal(msg1, msg2) {
			t.Fatalf("message changed across re-encoding: %v %v", err1, err2)
		}
	})
}
