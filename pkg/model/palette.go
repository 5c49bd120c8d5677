package model

// PaletteItem describes a node kind that can be dragged onto the canvas.
// Type is the tag handed to the graph library at drag start and posted back on drop.
type PaletteItem struct {
	Type        NodeType `json:"type"`
	Label       string   `json:"label"`
	Description string   `json:"description"`
	Color       string   `json:"color"`
}

var palette = []PaletteItem{
	{
		Type:        NodeTypeTextMessage,
		Label:       "Message",
		Description: "Send a text message",
		Color:       "#a7f3d0",
	},
}

// Palette returns the node kinds available for dropping
func Palette() []PaletteItem {
	items := make([]PaletteItem, len(palette))
	copy(items, palette)
	return items
}

// LookupPaletteItem finds the palette entry for a drag tag
func LookupPaletteItem(t NodeType) (PaletteItem, bool) {
	for _, item := range palette {
		if item.Type == t {
			return item, true
		}
	}
	return PaletteItem{}, false
}
