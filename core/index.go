package core

// Default similarity index settings.
const (
	DefaultIndexName         = "form_10k_chunks"
	DefaultNodeLabel         = "Chunk"
	DefaultTextProperty      = "text"
	DefaultEmbeddingProperty = "textEmbedding"
	DefaultSimilarity        = "cosine"
)

// IndexSpec describes the similarity index a deployment needs.
type IndexSpec struct {
	Name              string
	NodeLabel         string
	TextProperty      string
	EmbeddingProperty string
	// Dimensions of the stored vectors. Zero means learn it from the embedder.
	Dimensions int
	// Similarity is "cosine" or "euclidean".
	Similarity string
}

// DefaultIndexSpec returns the index used when nothing else is configured.
func DefaultIndexSpec() IndexSpec {
	return IndexSpec{
		Name:              DefaultIndexName,
		NodeLabel:         DefaultNodeLabel,
		TextProperty:      DefaultTextProperty,
		EmbeddingProperty: DefaultEmbeddingProperty,
		Similarity:        DefaultSimilarity,
	}
}

// IndexHandle refers to a vector index registered in the graph database.
type IndexHandle struct {
	Name              string
	NodeLabel         string
	TextProperty      string
	EmbeddingProperty string
	Dimensions        int
	Similarity        string
}

// Covers reports whether h indexes the label and embedding property spec asks for.
func (h *IndexHandle) Covers(spec IndexSpec) bool {
	return h != nil &&
		h.Name == spec.Name &&
		h.NodeLabel == spec.NodeLabel &&
		h.EmbeddingProperty == spec.EmbeddingProperty
}

// AttachStatus is the outcome of looking up an index by name.
type AttachStatus int

const (
	// StatusNotFound means no index is registered under the name.
	StatusNotFound AttachStatus = iota
	// StatusAttached means the index exists and Handle is usable.
	StatusAttached
)

func (s AttachStatus) String() string {
	if s == StatusAttached {
		return "attached"
	}
	return "not_found"
}

// AttachResult is the tagged result of an attach attempt. Connectivity and
// authentication failures are reported as errors, never as StatusNotFound.
type AttachResult struct {
	Status AttachStatus
	Handle *IndexHandle
	Reason string
}

// Attached returns a successful attach result.
func Attached(h *IndexHandle) AttachResult {
	return AttachResult{Status: StatusAttached, Handle: h}
}

// NotFound returns an attach result recording why the index is absent.
func NotFound(reason string) AttachResult {
	return AttachResult{Status: StatusNotFound, Reason: reason}
}
