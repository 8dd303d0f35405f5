// Package models defines the entities of the Liveness-and-Release Core's
// data model (spec.md §3). Structs are flat, with no ORM tags, matching
// the teacher's internal/server/models style.
package models

import "time"

// PollingInterval is how often a user must check in.
type PollingInterval string

const (
	IntervalWeekly   PollingInterval = "WEEKLY"
	IntervalBiweekly PollingInterval = "BIWEEKLY"
	IntervalMonthly  PollingInterval = "MONTHLY"
)

// PollingStatus is the Escalation State Machine's state (spec §4.3).
type PollingStatus string

const (
	StatusActive    PollingStatus = "ACTIVE"
	StatusPaused    PollingStatus = "PAUSED"
	StatusGrace1    PollingStatus = "GRACE_1"
	StatusGrace2    PollingStatus = "GRACE_2"
	StatusGrace3    PollingStatus = "GRACE_3"
	StatusTriggered PollingStatus = "TRIGGERED"
)

// User owns exactly one PollingConfig, at most one vault, a set of
// trustees, and a set of final letters.
type User struct {
	ID          string
	Email       string
	DisplayName string
	Phone       *string
	CreatedAt   time.Time
}

// PollingConfig is the one-per-user liveness state record (spec §3).
type PollingConfig struct {
	ID                         string
	UserID                     string
	Interval                   PollingInterval
	EmailEnabled               bool
	SMSEnabled                 bool
	GracePeriod1Days           int
	GracePeriod2Days           int
	GracePeriod3Days           int
	MissedCheckInsBeforeTrigger int
	CurrentMissedCheckIns      int
	LastCheckInAt              *time.Time
	NextCheckInDue             time.Time
	Status                     PollingStatus
	TriggeredAt                *time.Time
	UpdatedAt                  time.Time
}

// CheckInStatus is the lifecycle state of a CheckIn (spec §3).
type CheckInStatus string

const (
	CheckInPending   CheckInStatus = "PENDING"
	CheckInConfirmed CheckInStatus = "CONFIRMED"
	CheckInMissed    CheckInStatus = "MISSED"
	CheckInCancelled CheckInStatus = "CANCELLED"
)

// Channel is a notification channel a CheckIn was sent (or attempted) via.
type Channel string

const (
	ChannelEmail Channel = "EMAIL"
	ChannelSMS   Channel = "SMS"
)

// CheckIn is a single time-bounded liveness prompt.
type CheckIn struct {
	ID          string
	UserID      string
	Token       string
	Status      CheckInStatus
	SentVia     []Channel
	SentAt      time.Time
	RespondedAt *time.Time
	ExpiresAt   time.Time
}

// TrusteeStatus is the lifecycle state of a Trustee (spec §3).
type TrusteeStatus string

const (
	TrusteePending  TrusteeStatus = "PENDING"
	TrusteeVerified TrusteeStatus = "VERIFIED"
	TrusteeActive   TrusteeStatus = "ACTIVE"
	TrusteeRevoked  TrusteeStatus = "REVOKED"
)

// Trustee is a third party nominated to receive vault access on release.
type Trustee struct {
	ID                string
	UserID            string
	Name              string
	Email             string
	Phone             *string
	Relationship      string
	Status            TrusteeStatus
	VerificationToken *string
	VerifiedAt        *time.Time
	AccessToken       *string
	AccessGrantedAt   *time.Time
	AccessExpiresAt   *time.Time
}

// LetterStatus is the lifecycle state of a FinalLetter (spec §3).
type LetterStatus string

const (
	LetterDraft     LetterStatus = "DRAFT"
	LetterReady     LetterStatus = "READY"
	LetterDelivered LetterStatus = "DELIVERED"
)

// FinalLetter is a pre-composed message delivered to a recipient on
// release. encryptedBody/nonce are opaque blobs; the core never decrypts.
type FinalLetter struct {
	ID             string
	UserID         string
	RecipientName  string
	RecipientEmail string
	Subject        string
	EncryptedBody  []byte
	Nonce          []byte
	Status         LetterStatus
	DeliveredAt    *time.Time
}

// Vault holds a user's opaque, client-derived master key material. The core
// never derives or inspects it; it is stored exactly as uploaded and handed
// back verbatim to a trustee at release time (spec §3 "at most one vault").
type Vault struct {
	UserID              string
	EncryptedMasterKey  []byte
	MasterKeySalt       []byte
	MasterKeyNonce      []byte
	UpdatedAt           time.Time
}

// VaultItem is a single opaque, client-encrypted vault entry. Adapted from
// the teacher's Entry model; the core stores and returns encryptedData/nonce
// without ever decrypting them. A small item carries its ciphertext inline
// in EncryptedData; a large one instead carries a StorageKey pointing at an
// object in the Vault Blob Store, with EncryptedData left empty.
type VaultItem struct {
	ID            string
	UserID        string
	Type          string
	Name          string
	EncryptedData []byte
	Nonce         []byte
	Metadata      string
	StorageKey    *string
	CreatedAt     time.Time
}

// AuditEventKind enumerates the append-only AuditLog event kinds referenced
// throughout spec §4 and §8.
type AuditEventKind string

const (
	AuditCheckInConfirmed        AuditEventKind = "CHECK_IN_CONFIRMED"
	AuditCheckInMissed           AuditEventKind = "CHECK_IN_MISSED"
	AuditEscalationLevel         AuditEventKind = "ESCALATION_LEVEL"
	AuditEscalationSkippedStale  AuditEventKind = "ESCALATION_SKIPPED_STALE"
	AuditDeathProtocolTriggered  AuditEventKind = "DEATH_PROTOCOL_TRIGGERED"
	AuditAccessGranted           AuditEventKind = "ACCESS_GRANTED"
	AuditAccessNotified          AuditEventKind = "ACCESS_NOTIFIED"
	AuditLetterDelivered         AuditEventKind = "LETTER_DELIVERED"
	AuditJobFailed               AuditEventKind = "JOB_FAILED"
	AuditAdminForceCheckIn       AuditEventKind = "ADMIN_FORCE_CHECK_IN"
	AuditAdminTrigger            AuditEventKind = "ADMIN_TRIGGER"
	AuditPaused                  AuditEventKind = "PAUSED"
	AuditResumed                 AuditEventKind = "RESUMED"
)

// AuditLog is an append-only event record. Never mutated after insert.
type AuditLog struct {
	ID        string
	UserID    string
	Kind      AuditEventKind
	Detail    map[string]any
	CreatedAt time.Time
}

// WindowForInterval returns the check-in response window used when the
// Scheduler creates a fresh PENDING CheckIn for a given interval (spec §4.4
// step 1): WEEKLY→3d, BIWEEKLY→5d, MONTHLY→7d.
func WindowForInterval(i PollingInterval) time.Duration {
	switch i {
	case IntervalWeekly:
		return 3 * 24 * time.Hour
	case IntervalBiweekly:
		return 5 * 24 * time.Hour
	case IntervalMonthly:
		return 7 * 24 * time.Hour
	default:
		return 7 * 24 * time.Hour
	}
}

// DurationForInterval returns the cadence duration for a polling interval:
// the amount of time added to "now" to compute nextCheckInDue.
func DurationForInterval(i PollingInterval) time.Duration {
	switch i {
	case IntervalWeekly:
		return 7 * 24 * time.Hour
	case IntervalBiweekly:
		return 14 * 24 * time.Hour
	case IntervalMonthly:
		return 30 * 24 * time.Hour
	default:
		return 30 * 24 * time.Hour
	}
}
