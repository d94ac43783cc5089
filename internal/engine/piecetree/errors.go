package piecetree

import "errors"

// Errors returned by piece-tree operations. The set is closed: every
// mutating operation that can fail returns one of these. Queries never
// fail; they return sentinel values instead (see each method's doc).
var (
	// ErrNullReference indicates a caller passed a required reference as nil.
	ErrNullReference = errors.New("piecetree: required reference is nil")

	// ErrOutOfMemory indicates an allocation failed.
	ErrOutOfMemory = errors.New("piecetree: allocation failed")

	// ErrOutOfBounds indicates an offset, column, row, or offset-within-piece
	// argument violated its valid range after clamping rules were considered.
	ErrOutOfBounds = errors.New("piecetree: argument out of bounds")

	// ErrFailedInsertion indicates an insert could not complete; no visible
	// mutation occurred.
	ErrFailedInsertion = errors.New("piecetree: insertion failed")

	// ErrFailedErasure indicates an erase could not complete; no visible
	// mutation occurred.
	ErrFailedErasure = errors.New("piecetree: erasure failed")

	// ErrUnableToOpenFile indicates load_file could not open its source.
	ErrUnableToOpenFile = errors.New("piecetree: unable to open file")

	// ErrUnableToCreateFile indicates save_file could not create its destination.
	ErrUnableToCreateFile = errors.New("piecetree: unable to create file")

	// ErrFailedFileRead indicates a read error during load_file.
	ErrFailedFileRead = errors.New("piecetree: file read failed")

	// ErrFailedFileWrite indicates a write error during save_file.
	ErrFailedFileWrite = errors.New("piecetree: file write failed")
)
