package config

// LatticeFileName is the declaration file looked up when --lattice is not given.
const LatticeFileName = "lattice.yaml"

// LatticeFileExtensions are all recognized declaration/query file extensions
var LatticeFileExtensions = []string{".yaml", ".yml"}

// IsTestMode indicates if the program is running under go test.
// Set once from TestMain in packages that print types with generated names.
var IsTestMode = false

// UnionStackFastWords is the number of 32-bit words of union choices kept
// inline before a choice stack spills to the heap.
const UnionStackFastWords = 1

// Environment variables
const (
	LogLevelEnv = "TYPELATTICE_LOG"
	NoColorEnv  = "NO_COLOR"
	JournalEnv  = "TYPELATTICE_JOURNAL"
)

// Service defaults
const (
	DefaultServiceAddr  = "127.0.0.1:7411"
	ServiceProtoFile    = "typelattice/v1/lattice.proto"
	ServiceName         = "typelattice.v1.Lattice"
	DecideMethodName    = "Decide"
	DefaultHistoryLimit = 20
)

// Built-in type names understood by type documents
const (
	AnyTypeName    = "Any"
	BottomTypeName = "Bottom"
	UnionTypeName  = "Union"
)
