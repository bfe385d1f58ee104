package dto

// SnapshotTimeLayout is the timestamp prefix of every snapshot file name.
const SnapshotTimeLayout = "2006-01-02_15-04_05.000"

// BufferedSnapshot holds an annotated alert frame before flushing to disk.
type BufferedSnapshot struct {
	Timestamp string
	Camera    string
	EventID   string
	Faces     []FaceResult
	Data      []byte
}
