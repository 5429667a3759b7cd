package models

// AlternativeKind enumerates the shapes a counter-proposal can take.
type AlternativeKind string

const (
	AlternativePartialSwap       AlternativeKind = "PARTIAL_SWAP"
	AlternativeDifferentDate     AlternativeKind = "DIFFERENT_DATE"
	AlternativeMakeupTime        AlternativeKind = "MAKEUP_TIME"
	AlternativeSplitEvent        AlternativeKind = "SPLIT_EVENT"
	AlternativeCommunicationHelp AlternativeKind = "COMMUNICATION_HELP"
)

// ImpactLevel is an ordered severity used for default display ranking.
type ImpactLevel string

const (
	ImpactMinimal ImpactLevel = "MINIMAL"
	ImpactLow     ImpactLevel = "LOW"
	ImpactMedium  ImpactLevel = "MEDIUM"
)

// Alternative is a lower-impact substitute proposal offered after a
// change request is rejected. Alternatives are ephemeral: they are
// recomputed per rejection and never persisted.
type Alternative struct {
	ID                   string          `json:"id"`
	Kind                 AlternativeKind `json:"kind"`
	Title                string          `json:"title"`
	Description          string          `json:"description"`
	Suggestion           string          `json:"suggestion"`
	Impact               ImpactLevel     `json:"impact"`
	OriginatingRequestID string          `json:"originatingRequestId"`
}
