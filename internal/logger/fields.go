package logger

// Field names shared by every call site that logs about a graph node or a
// lookup table, so "which node" and "which op" always land under the same
// key regardless of which package is logging or which build tag is active.
const (
	FieldNodeID = "node_id"
	FieldOp     = "op"
	FieldBits   = "bits"
	FieldScale  = "scale"
)
