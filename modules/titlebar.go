package modules

import "github.com/vsariola/patchwork"

// TitleBar shows the name of the loaded layout. It is structural: always
// present, never saved and never removed.
type TitleBar struct {
	patchwork.ModuleBase
	title string
}

func NewTitleBar() *TitleBar {
	m := &TitleBar{}
	m.Bind(m, "titlebar")
	m.SetName("titlebar")
	m.SetStructural(true)
	return m
}

func (m *TitleBar) Title() string         { return m.title }
func (m *TitleBar) SetTitle(title string) { m.title = title }
