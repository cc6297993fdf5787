package fs

// SetRename replaces the rename step of atomic writes.
func (s *DatasetStore) SetRename(fn func(oldpath, newpath string) error) {
	s.rename = fn
}
