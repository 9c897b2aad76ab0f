package signature_test

import (
	"testing"

	"github.com/ardanlabs/blocksim/foundation/blockchain/signature"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

// =============================================================================

func Test_Hash(t *testing.T) {
	value := struct {
		Name string
	}{
		Name: "Bill",
	}

	hash := signature.Hash(value)
	if len(hash) != 66 || hash[:2] != "0x" {
		t.Fatalf("\t%s\tShould get back a 0x prefixed 32 byte hash: %s", failed, hash)
	}
	t.Logf("\t%s\tShould get back a 0x prefixed 32 byte hash.", success)

	if hash != signature.Hash(value) {
		t.Fatalf("\t%s\tShould get back the same hash for the same value.", failed)
	}
	t.Logf("\t%s\tShould get back the same hash for the same value.", success)

	value.Name = "Jill"
	if hash == signature.Hash(value) {
		t.Fatalf("\t%s\tShould get back a different hash for a different value.", failed)
	}
	t.Logf("\t%s\tShould get back a different hash for a different value.", success)
}

func Test_IsSolved(t *testing.T) {
	type table struct {
		name       string
		difficulty uint
		hash       string
		solved     bool
	}

	tt := []table{
		{name: "zero", difficulty: 0, hash: "0xf000000000000000000000000000000000000000000000000000000000000000", solved: true},
		{name: "two", difficulty: 2, hash: "0x00f0000000000000000000000000000000000000000000000000000000000000", solved: true},
		{name: "more", difficulty: 2, hash: "0x000f000000000000000000000000000000000000000000000000000000000000", solved: true},
		{name: "short", difficulty: 3, hash: "0x00f0000000000000000000000000000000000000000000000000000000000000", solved: false},
		{name: "length", difficulty: 1, hash: "0x00", solved: false},
	}

	t.Log("Given the need to validate the difficulty predicate.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen handling hash %q.", testID, tst.name)
			{
				f := func(t *testing.T) {
					got := signature.IsSolved(tst.difficulty, tst.hash)
					if got != tst.solved {
						t.Logf("\t%s\tTest %d:\tgot: %v", failed, testID, got)
						t.Logf("\t%s\tTest %d:\texp: %v", failed, testID, tst.solved)
						t.Fatalf("\t%s\tTest %d:\tShould get back the right answer.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould get back the right answer.", success, testID)
				}

				t.Run(tst.name, f)
			}
		}
	}
}

func Test_SignatureString(t *testing.T) {
	sig, err := signature.DecodeSignature("0x0102ff")
	if err != nil {
		t.Fatalf("\t%s\tShould be able to decode a signature: %s", failed, err)
	}
	t.Logf("\t%s\tShould be able to decode a signature.", success)

	if str := signature.SignatureString(sig); str != "0x0102ff" {
		t.Logf("\t%s\tgot: %s", failed, str)
		t.Fatalf("\t%s\tShould get back the same signature string.", failed)
	}
	t.Logf("\t%s\tShould get back the same signature string.", success)

	sig, err = signature.DecodeSignature("")
	if err != nil || sig != nil {
		t.Fatalf("\t%s\tShould treat an empty signature as missing.", failed)
	}
	t.Logf("\t%s\tShould treat an empty signature as missing.", success)

	if _, err := signature.DecodeSignature("zz"); err == nil {
		t.Fatalf("\t%s\tShould reject a signature without a 0x prefix.", failed)
	}
	t.Logf("\t%s\tShould reject a signature without a 0x prefix.", success)
}
