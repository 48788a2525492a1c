package bbreflect

// TextureTable maps billboards to a deduplicated texture list.
type TextureTable struct {
	// Textures holds each distinct texture once in order of first reference.
	Textures []Texture
	// Indices holds the index into Textures of each billboard's texture.
	Indices []int
}

// NewTextureTable builds the deduplicated texture table for billboards.
// It panics if a texture handle is not comparable.
func NewTextureTable(billboards []*Billboard) TextureTable {
	table := TextureTable{
		Indices: make([]int, len(billboards)),
	}
	seen := make(map[Texture]int, len(billboards))
	for i, b := range billboards {
		tex := b.Texture()
		idx, ok := seen[tex]
		if !ok {
			idx = len(table.Textures)
			seen[tex] = idx
			table.Textures = append(table.Textures, tex)
		}
		table.Indices[i] = idx
	}
	return table
}
