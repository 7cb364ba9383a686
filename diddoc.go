package didprism

// PublicKeyJWK holds JWK-encoded key material for a verification method.
// The client treats it as opaque; only the fields returned by the
// resolver for EC keys are modelled.
type PublicKeyJWK struct {
	Kty string `json:"kty,omitempty"`
	Crv string `json:"crv,omitempty"`
	X   string `json:"x,omitempty"`
	Y   string `json:"y,omitempty"`
}

type DocVerificationMethod struct {
	ID                 string        `json:"id,omitempty"`
	Type               string        `json:"type,omitempty"`
	Controller         string        `json:"controller,omitempty"`
	PublicKeyJWK       *PublicKeyJWK `json:"publicKeyJwk,omitempty"`
	PublicKeyMultibase string        `json:"publicKeyMultibase,omitempty"`
}

type DocService struct {
	ID              string `json:"id,omitempty"`
	Type            string `json:"type,omitempty"`
	ServiceEndpoint string `json:"serviceEndpoint,omitempty"`
}

// Struct representing a complete DID document, with the fields returned
// by Prism Node. The client does not interpret any of them.
type Document struct {
	Context              []string                `json:"@context,omitempty"`
	ID                   string                  `json:"id,omitempty"`
	Controller           string                  `json:"controller,omitempty"`
	AlsoKnownAs          []string                `json:"alsoKnownAs,omitempty"`
	VerificationMethod   []DocVerificationMethod `json:"verificationMethod,omitempty"`
	Authentication       []string                `json:"authentication,omitempty"`
	AssertionMethod      []string                `json:"assertionMethod,omitempty"`
	KeyAgreement         []string                `json:"keyAgreement,omitempty"`
	CapabilityInvocation []string                `json:"capabilityInvocation,omitempty"`
	CapabilityDelegation []string                `json:"capabilityDelegation,omitempty"`
	Service              []DocService            `json:"service,omitempty"`
}

// ResolutionMetadata is the didResolutionMetadata portion of a
// resolution result envelope.
type ResolutionMetadata struct {
	ContentType string `json:"contentType,omitempty"`
	Error       string `json:"error,omitempty"`
	Message     string `json:"message,omitempty"`
	Retrieved   string `json:"retrieved,omitempty"`
}

// DocumentMetadata is the didDocumentMetadata portion of a resolution
// result envelope.
type DocumentMetadata struct {
	Created       string `json:"created,omitempty"`
	Updated       string `json:"updated,omitempty"`
	Deactivated   bool   `json:"deactivated,omitempty"`
	VersionID     string `json:"versionId,omitempty"`
	NextUpdate    string `json:"nextUpdate,omitempty"`
	NextVersionID string `json:"nextVersionId,omitempty"`
	CanonicalID   string `json:"canonicalId,omitempty"`
}

// ResolutionResult is the full envelope returned when resolving with
// the did-resolution profile: the document plus both metadata blocks.
type ResolutionResult struct {
	Context            []string            `json:"@context,omitempty"`
	Document           *Document           `json:"didDocument,omitempty"`
	ResolutionMetadata *ResolutionMetadata `json:"didResolutionMetadata,omitempty"`
	DocumentMetadata   *DocumentMetadata   `json:"didDocumentMetadata,omitempty"`
}
