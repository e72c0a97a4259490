//go:build !(sasl2 && cgo)

package sasl2

type unlinked struct{}

// Native returns a Library whose calls fail with ErrNotLinked.
func Native() Library { return unlinked{} }

func (unlinked) ClientInit() error                 { return ErrNotLinked }
func (unlinked) ServerInit(string) error           { return ErrNotLinked }
func (unlinked) Done()                             {}
func (unlinked) VersionInfo() (VersionInfo, error) { return VersionInfo{}, ErrNotLinked }
func (unlinked) Mechanisms() []string              { return nil }
