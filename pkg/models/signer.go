package models

// Container is the persisted text form of an encrypted private key. Binary
// fields are standard base64 except PublicKey, which is base58.
type Container struct {
	Version    int    `json:"version"`
	Salt       string `json:"salt"`
	Nonce      string `json:"nonce"`
	Ciphertext string `json:"ciphertext"`
	PublicKey  string `json:"public_key"`
}

// SigningResult is the success payload of both signing operations.
// SignedTransaction is only set when signing through a container.
type SigningResult struct {
	Signature         string `json:"signature"`
	SignedTransaction string `json:"signed_transaction,omitempty"`
	PublicKey         string `json:"public_key"`
}
