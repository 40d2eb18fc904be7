package storage

import (
	"fmt"
	"strings"

	"github.com/julianstephens/agenda/internal/constants"
)

func segments(p string) ([]string, error) {
	if p == "" || strings.HasPrefix(p, "/") || strings.HasSuffix(p, "/") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPath, p)
	}
	parts := strings.Split(p, "/")
	for _, s := range parts {
		if s == "" || s == "." || s == ".." {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPath, p)
		}
	}
	return parts, nil
}

// ValidateCollection checks that p names a collection (odd segment count)
func ValidateCollection(p string) error {
	parts, err := segments(p)
	if err != nil {
		return err
	}
	if len(parts)%2 != 1 {
		return fmt.Errorf("%w: %q is not a collection path", ErrInvalidPath, p)
	}
	return nil
}

// ValidateDocument checks that p names a document (even segment count)
func ValidateDocument(p string) error {
	parts, err := segments(p)
	if err != nil {
		return err
	}
	if len(parts)%2 != 0 {
		return fmt.Errorf("%w: %q is not a document path", ErrInvalidPath, p)
	}
	return nil
}

// SplitDocPath returns the collection and id of a document path
func SplitDocPath(p string) (collection, id string, err error) {
	if err := ValidateDocument(p); err != nil {
		return "", "", err
	}
	i := strings.LastIndex(p, "/")
	return p[:i], p[i+1:], nil
}

func DocPath(collection, id string) string {
	return collection + "/" + id
}

// UserDoc is the root document of a user, holding preferences
func UserDoc(uid string) string {
	return DocPath(constants.UsersCollection, uid)
}

// UserCollection is a per-user sub-collection such as users/{uid}/todos
func UserCollection(uid, name string) string {
	return UserDoc(uid) + "/" + name
}
