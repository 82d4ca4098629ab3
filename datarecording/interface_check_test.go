package datarecording

// This file verifies that SQLiteWriter implements DataRecorder interface
// If this compiles, the interface is correctly implemented

var _ DataRecorder = (*SQLiteWriter)(nil)
