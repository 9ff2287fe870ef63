package cygpath

var _ Translator = stubTranslator{}

// stubTranslator is the translator for hosts where the runtime cannot exist
type stubTranslator struct{}

func (stubTranslator) Active() bool                              { return false }
func (stubTranslator) Library() string                           { return "" }
func (stubTranslator) Convert(Direction, string) (string, error) { return "", ErrInactive }
func (stubTranslator) ToNative(string) (string, error)           { return "", ErrInactive }
func (stubTranslator) ToPosix(string) (string, error)            { return "", ErrInactive }
func (stubTranslator) LooksLikeSymlink(string) bool              { return false }
func (stubTranslator) EntryLooksLikeSymlink(DirEntry) bool       { return false }
func (stubTranslator) Dereference(string) (string, error)        { return "", ErrInactive }
