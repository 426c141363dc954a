package payment

import (
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
)

// Signature is the lowercase hex SHA-512 of orderID, statusCode, grossAmount
// and the server key, concatenated without separators.
func Signature(orderID, statusCode, grossAmount, serverKey string) string {
	sum := sha512.Sum512([]byte(orderID + statusCode + grossAmount + serverKey))
	return hex.EncodeToString(sum[:])
}

// VerifySignature compares case-sensitively: an uppercase digest is rejected.
func VerifySignature(orderID, statusCode, grossAmount, signatureKey, serverKey string) bool {
	want := Signature(orderID, statusCode, grossAmount, serverKey)
	return subtle.ConstantTimeCompare([]byte(want), []byte(signatureKey)) == 1
}
