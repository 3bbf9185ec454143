package session

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/TheNaotagrey/Asgaria/client"
	"github.com/TheNaotagrey/Asgaria/editor"
	"github.com/TheNaotagrey/Asgaria/typedef"
)

var ErrInvalidForm = errors.New("invalid barony form")

// Form is the editable text of the barony panel. Empty reference fields mean null.
type Form struct {
	ID          string
	Name        string
	Seigneur    string
	ReligionPop string
	Culture     string
	County      string
	Duchy       string
}

// FormFor fills a form from a region id and its metadata.
func FormFor(id typedef.RegionID, b typedef.Barony, name string) Form {
	return Form{
		ID:          string(id),
		Name:        name,
		Seigneur:    formatRef(b.SeigneurID),
		ReligionPop: formatRef(b.ReligionPopID),
		Culture:     formatRef(b.CultureID),
		County:      formatRef(b.CountyID),
		Duchy:       formatRef(b.DuchyID),
	}
}

func formatRef(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}

func parseRef(label, v string) (*int64, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %q is not a number", ErrInvalidForm, label, v)
	}
	return &n, nil
}

// RegionID returns the trimmed id field. Backend ids are positive integers.
func (f Form) RegionID() (typedef.RegionID, int64, error) {
	raw := strings.TrimSpace(f.ID)
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n <= 0 {
		return typedef.NoRegion, 0, fmt.Errorf("%w: id %q must be a positive integer", ErrInvalidForm, raw)
	}
	return typedef.RegionID(strconv.FormatInt(n, 10)), n, nil
}

// Fields parses the form into backend fields.
func (f Form) Fields() (typedef.BaronyFields, error) {
	out := typedef.BaronyFields{Name: strings.TrimSpace(f.Name)}
	var err error
	if out.SeigneurID, err = parseRef("seigneur", f.Seigneur); err != nil {
		return out, err
	}
	if out.ReligionPopID, err = parseRef("religion pop", f.ReligionPop); err != nil {
		return out, err
	}
	if out.CultureID, err = parseRef("culture", f.Culture); err != nil {
		return out, err
	}
	if out.CountyID, err = parseRef("county", f.County); err != nil {
		return out, err
	}
	if out.DuchyID, err = parseRef("duchy", f.Duchy); err != nil {
		return out, err
	}
	return out, nil
}

// SelectedForm returns the panel contents for the selected region.
func (s *Session) SelectedForm() (Form, bool) {
	id := s.state.Selected()
	if id == typedef.NoRegion {
		return Form{}, false
	}
	return FormFor(id, s.meta[id], s.state.RegionName(id)), true
}

// UpdateSelected applies the panel form to the selected region.
//
// With an unchanged id the record is rewritten. A fresh id moves the pixels and
// writes the new record. An id owned by another region swaps the two: the
// other region's record moves to the old id and the form is written to the new id.
func (s *Session) UpdateSelected(f Form) (editor.UpdateResult, error) {
	oldID := s.state.Selected()
	if !s.editMode || oldID == typedef.NoRegion {
		return editor.UpdateResult{}, editor.ErrNoSelection
	}
	newID, newNum, err := f.RegionID()
	if err != nil {
		return editor.UpdateResult{}, err
	}
	fields, err := f.Fields()
	if err != nil {
		return editor.UpdateResult{}, err
	}

	before := s.captureMeta(oldID, newID)
	displaced, hadDisplaced := s.meta[newID]

	res, err := s.state.UpdateRegion(oldID, newID, fields.Name)
	if err != nil {
		return res, err
	}
	if res.Kind != editor.UpdateNone {
		s.pushMeta(before)
		s.touch()
	}

	switch res.Kind {
	case editor.UpdateSwapped:
		if oldNum, ok := oldID.Numeric(); ok {
			moved := typedef.Barony{ID: oldNum}
			if hadDisplaced {
				displaced.Fields().Apply(&moved)
			}
			moved.Name = s.state.RegionName(oldID)
			s.meta[oldID] = moved
			s.jobs.Submit(client.PutBaronyJob(oldNum, moved.Fields()))
		}
	}

	b := typedef.Barony{ID: newNum}
	fields.Apply(&b)
	s.meta[newID] = b
	s.jobs.Submit(client.PutBaronyJob(newNum, fields))

	s.applyNames()
	s.refreshFilter()
	return res, nil
}
