package grouping

import "notaria/internal/document/models"

// Partition is the set of documents of one bulk operation sharing a key.
type Partition struct {
	Key       Key
	Documents []*models.Document
}

// IsGroup reports whether the partition forms a multi-document group.
func (p Partition) IsGroup() bool { return len(p.Documents) > 1 }

// PartitionDocuments splits docs by client key. Partitions appear in the order
// their first document appears in docs, and documents keep their input order.
func PartitionDocuments(docs []*models.Document) []Partition {
	var parts []Partition
	for _, doc := range docs {
		k := KeyOf(doc)
		placed := false
		for i := range parts {
			if Equal(parts[i].Key, k) {
				parts[i].Documents = append(parts[i].Documents, doc)
				placed = true
				break
			}
		}
		if !placed {
			parts = append(parts, Partition{Key: k, Documents: []*models.Document{doc}})
		}
	}
	return parts
}
