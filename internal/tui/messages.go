package tui

import (
	"studyhelper/internal/models"
	"studyhelper/internal/service/study"
	"studyhelper/internal/studio"
)

// UploadDoneMsg is sent when a document has been read and extracted.
type UploadDoneMsg struct {
	Err error
}

// StageMsg reports a generation step that has just started.
type StageMsg struct {
	Stage study.Stage
}

// GenerateDoneMsg ends a generation cycle.
type GenerateDoneMsg struct {
	Session *models.StudySession
	Err     error
}

// HistoryLoadedMsg carries the past sessions sidebar.
type HistoryLoadedMsg struct {
	Entries []studio.HistoryEntry
	Err     error
}
