package content

import (
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"
)

// Object key layout.
const (
	SetsPrefix     = "content/sets/"
	draftsPrefix   = "drafts/"
	promotedPrefix = "sets/"

	setItemsFile    = "items.jsonl"
	setMetadataFile = "metadata.json"
	// DraftItemsFile is the default draft document.
	DraftItemsFile = "items.json"
	draftIndexFile = "index.json"
)

// ErrInvalidName is returned for set or file names that could escape their prefix.
var ErrInvalidName = errors.New("invalid name")

var (
	setNamePattern = regexp.MustCompile(`^[A-Za-z0-9._-]{1,128}$`)
	setKeyPattern  = regexp.MustCompile(`^content/sets/([^/]+)/`)
)

// SetItemsPath is the JSONL items object of a generated set.
func SetItemsPath(id string) string { return SetsPrefix + id + "/" + setItemsFile }

// SetMetadataPath is the optional metadata object of a generated set.
func SetMetadataPath(id string) string { return SetsPrefix + id + "/" + setMetadataFile }

// SetDir is the folder holding a generated set.
func SetDir(id string) string { return SetsPrefix + id + "/" }

// DraftItemsPath is the items array pushed by the web agent.
func DraftItemsPath(name string) string { return draftsPrefix + name + "/" + DraftItemsFile }

// DraftIndexPath is the draft's index document.
func DraftIndexPath(name string) string { return draftsPrefix + name + "/" + draftIndexFile }

// DraftFilePath is an arbitrary file inside a draft folder.
func DraftFilePath(name, file string) string { return draftsPrefix + name + "/" + file }

// PromotedItemsPath is where BuildSet copies draft items.
func PromotedItemsPath(name string) string { return promotedPrefix + name + "/" + DraftItemsFile }

// PromotedIndexPath is where BuildSet writes the index.
func PromotedIndexPath(name string) string { return promotedPrefix + name + "/" + draftIndexFile }

// SetIDFromKey extracts <id> from content/sets/<id>/...
func SetIDFromKey(key string) (string, bool) {
	match := setKeyPattern.FindStringSubmatch(key)
	if match == nil {
		return "", false
	}
	return match[1], true
}

// ValidateSetName rejects names that are empty, too long, contain path
// separators or parent references, or use characters outside [A-Za-z0-9._-].
func ValidateSetName(name string) error {
	if !setNamePattern.MatchString(name) || strings.Contains(name, "..") || name == "." {
		return fmt.Errorf("%w: set %q", ErrInvalidName, name)
	}
	return nil
}

// ValidateDraftFile accepts a bare *.json file name.
func ValidateDraftFile(file string) error {
	if file == "" || path.Base(file) != file || !strings.HasSuffix(file, ".json") ||
		strings.HasPrefix(file, ".") || strings.Contains(file, "\\") {
		return fmt.Errorf("%w: file %q", ErrInvalidName, file)
	}
	return nil
}
