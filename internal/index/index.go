package index

// SongIndex defines the interface for song indexing operations.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type SongIndex interface {
	UpsertSong(s SongRow, body string, chords []string) error
	DeleteSong(path string) error
	GetChecksum(path string) (string, error)
	GetSong(path string) (*SongRow, error)
	ListSongs(limit, offset int, tag, sort string) ([]SongRow, int, error)
	Search(query string, limit int) ([]SearchResult, error)
	SongsWithChord(chord string) ([]string, error)
	Graph() ([]GraphNode, []GraphLink, error)
	AllChecksums() (map[string]string, error)
	Close() error
}

// Verify *DB satisfies SongIndex at compile time.
var _ SongIndex = (*DB)(nil)
