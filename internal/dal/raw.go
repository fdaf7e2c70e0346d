package dal

// RawKind identifies the structural type of a raw block as reported by a
// format backend, before the DOM builder normalizes it.
type RawKind int

const (
	RawParagraph RawKind = iota
	RawTable
	RawImage
	// RawCell only appears nested inside a RawTable row. A backend that
	// emits one at the top level produced a malformed block sequence.
	RawCell
)

func (k RawKind) String() string {
	switch k {
	case RawParagraph:
		return "paragraph"
	case RawTable:
		return "table"
	case RawImage:
		return "image"
	case RawCell:
		return "cell"
	}
	return "unknown"
}

// RawRun is a contiguous span of identically formatted text within a
// paragraph.
type RawRun struct {
	Text      string
	Bold      bool
	Italic    bool
	Underline bool
	Font      string
	Size      float64 // points, 0 when unspecified
	Color     string  // hex RGB without '#', empty when unspecified
}

// RawBlock is one structural unit read from a document file. Fields are
// populated according to Kind; the builder validates the shape.
type RawBlock struct {
	Kind      RawKind
	StyleName string  // paragraph style, e.g. "Heading 2" or "Normal"
	Align     string  // left, center, right, justify; empty when unset
	Spacing   float64 // line spacing multiple, 0 when unset
	Runs      []RawRun

	// Table content: rows of cells, each cell a RawCell block.
	Rows [][]RawBlock

	// Cell content: the paragraphs inside one table cell.
	Blocks []RawBlock

	// Image content.
	ImageRef string // relationship id or source path
	Caption  string
}

// Text concatenates the block's run text.
func (b *RawBlock) Text() string {
	var out string
	for _, r := range b.Runs {
		out += r.Text
	}
	return out
}

// MutationKind enumerates the write operations a backend can apply.
type MutationKind int

const (
	// MutSetRuns replaces the full run sequence of one paragraph,
	// addressed by top-level block position and, inside a table, by
	// row/col/paragraph index.
	MutSetRuns MutationKind = iota
	// MutInsertParagraph inserts a new paragraph before BlockPos
	// (or appends when BlockPos == -1).
	MutInsertParagraph
	// MutDeleteBlock removes the block at BlockPos.
	MutDeleteBlock
	// MutInsertTable inserts a table built from Table before BlockPos
	// (or appends when BlockPos == -1).
	MutInsertTable
	// MutInsertImage inserts an image reference paragraph.
	MutInsertImage
	// MutSetSpacing sets paragraph spacing/alignment without touching runs.
	MutSetSpacing
)

// Mutation is a single write command addressed at the raw block layer.
// Cell coordinates are -1 for top-level paragraphs.
type Mutation struct {
	Kind     MutationKind
	BlockPos int
	Row, Col int
	Para     int // paragraph index within a cell
	Runs     []RawRun
	Style    string
	Align    string
	Spacing  float64
	Table    [][]string // cell text for MutInsertTable
	ImageSrc string     // file path for MutInsertImage
}

// NewMutation returns a Mutation with cell coordinates cleared.
func NewMutation(kind MutationKind, blockPos int) Mutation {
	return Mutation{Kind: kind, BlockPos: blockPos, Row: -1, Col: -1}
}
