package txpool

import (
	"crypto"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"math/big"
	"strings"

	"ledgrid/internal/codec"
	"ledgrid/state"
)

// signedPlaceholder is the fixed literal every Input transaction's RSA
// signature is verified against. The source system this was distilled from
// never signs the actual transfer fields, only this constant; that
// placeholder behavior is preserved rather than fixed.
const signedPlaceholder = "TEST"

// ExecuteBlock applies txs in order against st. Each kind's script is
// deterministic and any per-transaction parse or verification failure
// leaves state unchanged for that transaction without aborting the batch.
func ExecuteBlock(txs []Transaction, st *state.State) {
	for _, tx := range txs {
		switch tx.Kind {
		case Output:
			applyOutput(tx, st)
		case Input:
			applyInput(tx, st)
		}
	}
}

// applyOutput is the default Output script: idempotently seed the sender's
// balance and publish the transaction's payload under its own hash.
func applyOutput(tx Transaction, st *state.State) {
	if _, ok := st.Get(tx.Sender); !ok {
		st.Set(tx.Sender, "0")
	}
	if _, ok := st.Get(tx.Hash); !ok {
		st.Set(tx.Hash, tx.Data)
	}
}

// applyInput is the default Input script: a balance transfer gated on an
// RSA signature over signedPlaceholder. The transaction's own data carries
// the partner's account key (fields[0]) and the hash of the partner's
// published Output blob (fields[1]); the amount is read out of that Output
// blob, and the partner's balance is read and rewritten under fields[0],
// not under the hash.
func applyInput(tx Transaction, st *state.State) {
	decoded, err := codec.Base64Decode(tx.Data)
	if err != nil {
		return
	}
	fields := strings.Fields(decoded)
	if len(fields) != 4 {
		return
	}
	partnerSender, partnerHash, sigB64, pubKeyB64 := fields[0], fields[1], fields[2], fields[3]

	partnerRaw, ok := st.Get(partnerHash)
	if !ok {
		return
	}
	partnerDecoded, err := codec.Base64Decode(partnerRaw)
	if err != nil {
		return
	}
	partnerFields := strings.Fields(partnerDecoded)
	if len(partnerFields) != 2 {
		return
	}
	amount, ok := new(big.Int).SetString(partnerFields[1], 10)
	if !ok {
		return
	}

	pubKeyDER, err := base64.StdEncoding.DecodeString(pubKeyB64)
	if err != nil {
		return
	}
	parsedKey, err := x509.ParsePKIXPublicKey(pubKeyDER)
	if err != nil {
		return
	}
	rsaPub, ok := parsedKey.(*rsa.PublicKey)
	if !ok {
		return
	}

	sigBytes, err := base64.StdEncoding.DecodeString(sigB64)
	if err != nil {
		return
	}

	digest := sha256.Sum256([]byte(signedPlaceholder))
	if err := rsa.VerifyPKCS1v15(rsaPub, crypto.SHA256, digest[:], sigBytes); err != nil {
		return
	}

	senderBalance := balanceOf(st, tx.Sender)
	partnerBalance := balanceOf(st, partnerSender)

	newSender := new(big.Int).Add(senderBalance, amount)
	newPartner := new(big.Int).Sub(partnerBalance, amount)

	st.Set(tx.Sender, newSender.String())
	st.Set(partnerSender, newPartner.String())
}

// balanceOf parses key's stored balance, defaulting to zero for a missing
// or unparsable entry.
func balanceOf(st *state.State, key string) *big.Int {
	raw, ok := st.Get(key)
	if !ok {
		return big.NewInt(0)
	}
	v, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return big.NewInt(0)
	}
	return v
}
