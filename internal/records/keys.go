// Package records turns documents into search index records with stable identities.
package records

import "fmt"

// DistinctKey returns the group key shared by every record of a document.
func DistinctKey(docType, id string) string {
	return docType + "#" + id
}

// ObjectID returns the identity of the fragment at ordinal within a document.
func ObjectID(docType, id string, ordinal int) string {
	return fmt.Sprintf("%s-%s-%d", docType, id, ordinal)
}
