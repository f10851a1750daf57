// Package identity implements the credential core: canonical record hashing,
// challenge and stamp issuance, credential verification, and the client flow
// used to obtain credentials from a remote issuer.
package identity

import "time"

// Signature schemes selectable per request. Ed25519 is the default and issues
// under a did:key issuer; EIP712 issues under did:ethr with a typed-data proof.
const (
	SignatureEd25519 = "Ed25519"
	SignatureEIP712  = "EIP712"
)

const (
	// CredentialsContext is the base W3C VC context present on every credential.
	CredentialsContext = "https://www.w3.org/2018/credentials/v1"
	// StatusListContext is attached to EIP712 stamp credentials so revocation
	// support can be added without reissuing.
	StatusListContext = "https://w3id.org/vc/status-list/2021/v1"

	schemaText  = "https://schema.org/Text"
	schemaThing = "https://schema.org/Thing"
	schemaURL   = "https://schema.org/URL"
)

// PKHDID builds the did:pkh identifier for a mainnet wallet address.
func PKHDID(address string) string {
	return "did:pkh:eip155:1:" + address
}

// RequestPayload identifies the subject and provider type being checked, plus
// caller-supplied evidence. It is treated as immutable once submitted.
type RequestPayload struct {
	Address       string            `json:"address"`
	Type          string            `json:"type"`
	Types         []string          `json:"types,omitempty"`
	Version       string            `json:"version"`
	Challenge     string            `json:"challenge,omitempty"`
	Signer        string            `json:"signer,omitempty"`
	SignatureType string            `json:"signatureType,omitempty"`
	Proofs        map[string]string `json:"proofs,omitempty"`
}

// CredentialSubject carries the claim fields of a credential. Challenge
// credentials populate Challenge/Address; stamp credentials populate Hash and
// optionally MetaPointer.
type CredentialSubject struct {
	// Context holds per-field schema annotations. Its shape differs between
	// the two signature schemes, so it stays loosely typed.
	Context     any               `json:"@context,omitempty"`
	ID          string            `json:"id"`
	Provider    string            `json:"provider,omitempty"`
	Challenge   string            `json:"challenge,omitempty"`
	Address     string            `json:"address,omitempty"`
	Hash        string            `json:"hash,omitempty"`
	MetaPointer string            `json:"metaPointer,omitempty"`
	CustomInfo  map[string]string `json:"customInfo,omitempty"`
}

// Proof is the cryptographic proof attached by the signing backend.
type Proof struct {
	Type               string    `json:"type"`
	ProofPurpose       string    `json:"proofPurpose"`
	VerificationMethod string    `json:"verificationMethod"`
	Created            time.Time `json:"created"`
	ProofValue         string    `json:"proofValue,omitempty"`
	JWS                string    `json:"jws,omitempty"`
}

// Credential is the W3C Verifiable Credential envelope. Both signature
// schemes converge on this shape.
type Credential struct {
	Context           []string          `json:"@context"`
	Type              []string          `json:"type"`
	Issuer            string            `json:"issuer"`
	IssuanceDate      time.Time         `json:"issuanceDate"`
	ExpirationDate    time.Time         `json:"expirationDate"`
	CredentialSubject CredentialSubject `json:"credentialSubject"`
	Proof             *Proof            `json:"proof,omitempty"`
}

// ChallengeResponse wraps an issued challenge credential as returned by the
// challenge endpoint.
type ChallengeResponse struct {
	Credential *Credential `json:"credential"`
}

// CredentialResponse is one entry of a verify endpoint response: either an
// issued credential with its disclosed record, or a per-provider error.
type CredentialResponse struct {
	Record     map[string]string `json:"record,omitempty"`
	Credential *Credential       `json:"credential,omitempty"`
	Error      string            `json:"error,omitempty"`
}

// VerificationResult is what the signing backend reports for a proof check.
// A credential proof is good when Errors is empty.
type VerificationResult struct {
	Checks   []string `json:"checks"`
	Warnings []string `json:"warnings"`
	Errors   []string `json:"errors"`
}
