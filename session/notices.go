package session

import (
	"fmt"

	"github.com/TheNaotagrey/Asgaria/api"
	"github.com/TheNaotagrey/Asgaria/client"
	"github.com/TheNaotagrey/Asgaria/typedef"

	"github.com/sirupsen/logrus"
)

// Level is the severity of a notice.
type Level int

const (
	LevelInfo Level = iota
	LevelWarn
	LevelError
)

// Notice is a message for the user.
type Notice struct {
	Level Level
	Text  string
}

func (s *Session) notify(level Level, text string) {
	s.notices = append(s.notices, Notice{Level: level, Text: text})
}

func (s *Session) info(text string) { s.notify(LevelInfo, text) }
func (s *Session) warn(text string) { s.notify(LevelWarn, text) }

func (s *Session) errorf(format string, args ...any) {
	s.notify(LevelError, fmt.Sprintf(format, args...))
}

// HandleResult turns a finished backend write into notices.
func (s *Session) HandleResult(res client.Result) {
	if res.Err != nil {
		s.errorf("Could not %s: %v. Press Retry to try again.", res.Job.Kind, res.Err)
		return
	}
	switch res.Job.Kind {
	case client.JobSavePixels:
		s.revision = res.Revision
		// Edits made after the save was queued stay unsaved.
		if res.Job.Seq > s.saved && res.Job.Seq <= s.edits {
			s.saved = res.Job.Seq
		}
		s.info(fmt.Sprintf("Saved %d baronies (revision %d)", len(res.Job.Pixels), res.Revision))
	case client.JobDeleteBarony:
		if res.Changes == 0 {
			s.log.WithField("id", res.Job.ID).Debug("barony was not stored on the backend")
		}
	}
}

// Revision returns the last pixel revision seen from the backend.
func (s *Session) Revision() int64 { return s.revision }

// SetRevision records the revision of freshly loaded pixels.
func (s *Session) SetRevision(rev int64) { s.revision = rev }

// ApplyEvent merges a change made by another client. It reports whether the
// pixel map should be reloaded from the backend.
func (s *Session) ApplyEvent(ev client.Event) bool {
	switch ev.Type {
	case api.MessageTypePixelsSaved:
		d, err := ev.PixelsSaved()
		if err != nil {
			s.log.WithError(err).Warn("malformed pixels_saved event")
			return false
		}
		if d.Revision <= s.revision {
			return false
		}
		if s.Unsaved() {
			s.warn(fmt.Sprintf("Pixels were saved elsewhere (revision %d). Saving will overwrite them.", d.Revision))
			return false
		}
		s.info(fmt.Sprintf("Pixels updated elsewhere (revision %d)", d.Revision))
		return true

	case api.MessageTypeBaronyCreated, api.MessageTypeBaronyUpdated:
		d, err := ev.Barony()
		if err != nil || d.Barony == nil {
			s.log.WithField("type", ev.Type).Warn("malformed barony event")
			return false
		}
		s.meta[d.Barony.RegionID()] = *d.Barony
		s.applyNames()
		s.refreshFilter()

	case api.MessageTypeBaronyDeleted:
		d, err := ev.Barony()
		if err != nil {
			s.log.WithField("type", ev.Type).Warn("malformed barony event")
			return false
		}
		delete(s.meta, typedef.Barony{ID: d.ID}.RegionID())
		s.refreshFilter()
		s.info(fmt.Sprintf("Barony %d deleted elsewhere", d.ID))

	default:
		s.log.WithFields(logrus.Fields{"type": ev.Type}).Debug("ignored event")
	}
	return false
}
