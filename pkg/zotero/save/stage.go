package save

// Stage is a step of the save state machine. Stages run strictly in
// declaration order; only StageSubmitted can fail the invocation.
type Stage string

const (
	StageNormalized           Stage = "normalized"
	StageLinked               Stage = "linked"
	StageNotesMerged          Stage = "notes_merged"
	StageSubmitted            Stage = "submitted"
	StageAttachmentsProcessed Stage = "attachments_processed"
	StageSnapshotProcessed    Stage = "snapshot_processed"
	StageDone                 Stage = "done"
)
