package permission

import (
	"sort"

	"github.com/pkg/errors"
)

// Permission is a fine-grained capability token.
type Permission string

// Catalog
const (
	ViewGrades       Permission = "view_grades"
	EditGrades       Permission = "edit_grades"
	ManageUsers      Permission = "manage_users"
	ManageProfiles   Permission = "manage_profiles"
	PublishNotices   Permission = "publish_notices"
	ApproveDocuments Permission = "approve_documents"
	ViewReports      Permission = "view_reports"
)

// Entry describes a catalog Permission.
type Entry struct {
	ID          Permission `json:"id"`
	Label       string     `json:"label"`
	Description string     `json:"description"`
}

var (
	catalog = []Entry{
		{ID: ViewGrades, Label: "View grades", Description: "View student grades and attendance."},
		{ID: EditGrades, Label: "Edit grades", Description: "Record and correct student grades."},
		{ID: ManageUsers, Label: "Manage users", Description: "Create, edit and delete user accounts."},
		{ID: ManageProfiles, Label: "Manage access profiles", Description: "Create, edit and delete access profiles."},
		{ID: PublishNotices, Label: "Publish notices", Description: "Publish notices on the school board."},
		{ID: ApproveDocuments, Label: "Approve documents", Description: "Process and approve document requests."},
		{ID: ViewReports, Label: "View reports", Description: "Access administrative reports and metrics."},
	}

	// position of each Permission in the catalog
	rank = func() map[Permission]int {
		r := make(map[Permission]int, len(catalog))
		for i, e := range catalog {
			r[e.ID] = i
		}
		return r
	}()
)

// List returns the catalog entries, always in the same order.
func List() []Entry {
	entries := make([]Entry, len(catalog))
	copy(entries, catalog)
	return entries
}

// All returns every catalog Permission, in catalog order.
func All() []Permission {
	perms := make([]Permission, 0, len(catalog))
	for _, e := range catalog {
		perms = append(perms, e.ID)
	}
	return perms
}

func Valid(p Permission) bool {
	_, ok := rank[p]
	return ok
}

// Parse returns the Permission named s.
func Parse(s string) (Permission, error) {
	p := Permission(s)
	if !Valid(p) {
		return "", errors.Errorf("unknown permission %q", s)
	}
	return p, nil
}

// Set is an unordered collection of distinct permissions.
type Set map[Permission]struct{}

func NewSet(perms ...Permission) Set {
	s := make(Set, len(perms))
	for _, p := range perms {
		s[p] = struct{}{}
	}
	return s
}

func (s Set) Has(p Permission) bool {
	_, ok := s[p]
	return ok
}

// Slice returns the permissions of the Set in catalog order.
func (s Set) Slice() []Permission {
	perms := make([]Permission, 0, len(s))
	for p := range s {
		perms = append(perms, p)
	}
	sort.Slice(perms, func(i, j int) bool { return less(perms[i], perms[j]) })
	return perms
}

// Normalize drops duplicates from perms and sorts them in catalog order.
func Normalize(perms []Permission) []Permission {
	return NewSet(perms...).Slice()
}

// unknown tokens sort after catalog ones
func less(a, b Permission) bool {
	ra, okA := rank[a]
	rb, okB := rank[b]
	switch {
	case okA && okB:
		return ra < rb
	case okA != okB:
		return okA
	default:
		return a < b
	}
}
