package models

// StudySession is one completed upload-and-generate cycle as stored in the
// progress table. Rows are never updated after insert.
type StudySession struct {
	ID         int64  `json:"id"`
	Filename   string `json:"filename"`
	Summary    string `json:"summary"`
	Flashcards string `json:"flashcards"`
	Quiz       string `json:"quiz"`
}

// SessionPreview is the history projection of a StudySession.
type SessionPreview struct {
	ID       int64  `json:"id"`
	Filename string `json:"filename"`
	Summary  string `json:"summary"`
}
