package identity

import "context"

// DID methods understood by the signing backend.
const (
	DIDMethodKey  = "key"
	DIDMethodEthr = "ethr"
)

// ProofPurposeAssertion is the default proof purpose for issued credentials.
const ProofPurposeAssertion = "assertionMethod"

// ProofOptions parameterize signing and verification calls to the backend.
type ProofOptions struct {
	ProofPurpose       string `json:"proofPurpose,omitempty"`
	VerificationMethod string `json:"verificationMethod,omitempty"`
	// Type selects a non-default proof suite, e.g. the EIP712 typed-data
	// signature. Empty means the backend's default for the DID method.
	Type string `json:"type,omitempty"`
}

// Signer is the DID/VC signing capability the issuer and verifier delegate
// to. Implementations wrap an actual DID toolkit; this package treats the
// primitive as opaque and only depends on this contract.
type Signer interface {
	// KeyToDID derives the issuer DID for the given method from key material.
	KeyToDID(method, key string) (string, error)
	// KeyToVerificationMethod resolves the verification method URI for the key.
	KeyToVerificationMethod(ctx context.Context, method, key string) (string, error)
	// IssueCredential signs the credential document and returns it with proof.
	IssueCredential(ctx context.Context, credential *Credential, options ProofOptions, key string) (*Credential, error)
	// VerifyCredential checks the credential's proof. Proof failures are
	// reported in the result, not as an error; errors mean the backend itself
	// could not run the check.
	VerifyCredential(ctx context.Context, credential *Credential, options ProofOptions) (VerificationResult, error)
}
