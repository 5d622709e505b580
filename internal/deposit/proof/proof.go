// Package proof hashes deposit proofs and verifies operator signatures.
//
// The proof hash is keccak256 over the RFC 8785 canonical JSON of every proof
// field except the signature. Operators sign it as a compact EdDSA JWS whose
// kid header is the operator address and whose proof_hash claim carries the
// hash.
package proof

import (
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gowebpki/jcs"
	"golang.org/x/crypto/sha3"

	"aurum/internal/deposit/models"
	id "aurum/pkg/domain"
)

// ErrUntrustedSigner covers unknown operators, bad signatures and signatures
// over a different proof.
var ErrUntrustedSigner = errors.New("untrusted signer")

const claimProofHash = "proof_hash"

// Numbers are encoded as strings: canonical JSON numbers are doubles.
type canonical struct {
	Holder       string `json:"holder"`
	SourceChain  string `json:"source_chain"`
	SourceTxHash string `json:"source_tx_hash"`
	SourceToken  string `json:"source_token"`
	SourceAmount string `json:"source_amount"`
	USDAmount    string `json:"usd_amount"`
	Nonce        string `json:"nonce"`
	Timestamp    int64  `json:"timestamp"`
}

// Canonical returns the RFC 8785 encoding the hash is computed over.
func Canonical(p *models.Proof) ([]byte, error) {
	raw, err := json.Marshal(canonical{
		Holder:       p.Holder.String(),
		SourceChain:  p.SourceChain,
		SourceTxHash: p.SourceTxHash,
		SourceToken:  p.SourceToken,
		SourceAmount: p.SourceAmount.String(),
		USDAmount:    p.USDAmount.String(),
		Nonce:        strconv.FormatUint(p.Nonce, 10),
		Timestamp:    p.Timestamp.Unix(),
	})
	if err != nil {
		return nil, fmt.Errorf("encode proof: %w", err)
	}
	out, err := jcs.Transform(raw)
	if err != nil {
		return nil, fmt.Errorf("canonicalize proof: %w", err)
	}
	return out, nil
}

func Hash(p *models.Proof) (id.Hash, error) {
	data, err := Canonical(p)
	if err != nil {
		return id.Hash{}, err
	}
	h := sha3.NewLegacyKeccak256()
	h.Write(data)
	return id.HashFromBytes(h.Sum(nil)), nil
}

// Sign produces the operator signature over hash.
func Sign(hash id.Hash, operator id.Address, key ed25519.PrivateKey) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, jwt.MapClaims{claimProofHash: hash.String()})
	token.Header["kid"] = operator.String()
	return token.SignedString(key)
}

// KeyLookup returns the public key of a trusted operator.
type KeyLookup func(operator id.Address) (ed25519.PublicKey, error)

// Verify checks signature against hash and returns the operator that signed
// it. Every failure wraps ErrUntrustedSigner.
func Verify(signature string, hash id.Hash, lookup KeyLookup) (id.Address, error) {
	var signer id.Address
	token, err := jwt.Parse(signature, func(token *jwt.Token) (any, error) {
		kid, ok := token.Header["kid"].(string)
		if !ok {
			return nil, errors.New("missing kid in header")
		}
		addr, err := id.ParseAddress(kid)
		if err != nil {
			return nil, err
		}
		key, err := lookup(addr)
		if err != nil {
			return nil, err
		}
		signer = addr
		return key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodEdDSA.Alg()}))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUntrustedSigner, err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("%w: unexpected claims", ErrUntrustedSigner)
	}
	if signed, _ := claims[claimProofHash].(string); signed != hash.String() {
		return "", fmt.Errorf("%w: signature covers a different proof", ErrUntrustedSigner)
	}
	return signer, nil
}
