package tripplan

import (
	"encoding/json"
	"fmt"
)

// Item is one line of guidance inside a section. It is a two-variant union:
// a plain string, or a structured entry with an optional tag and links.
// The JSON form discriminates structurally — a bare string stays a bare
// string on the wire, an object carries a required "text" property.
type Item struct {
	Text  string
	Tag   Tag
	Links []Link

	plain bool
}

func PlainItem(text string) Item {
	return Item{Text: text, plain: true}
}

func StructuredItem(text string, tag Tag, links ...Link) Item {
	return Item{Text: text, Tag: tag, Links: links}
}

func (i Item) IsPlain() bool { return i.plain }

type structuredItemJSON struct {
	Text  string `json:"text"`
	Tag   Tag    `json:"tag,omitempty"`
	Links []Link `json:"links,omitempty"`
}

func (i Item) MarshalJSON() ([]byte, error) {
	if i.plain && i.Tag == "" && len(i.Links) == 0 {
		return json.Marshal(i.Text)
	}
	return json.Marshal(structuredItemJSON{Text: i.Text, Tag: i.Tag, Links: i.Links})
}

func (i *Item) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*i = Item{Text: s, plain: true}
		return nil
	}
	var obj structuredItemJSON
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("item is neither string nor object: %w", err)
	}
	*i = Item{Text: obj.Text, Tag: obj.Tag, Links: obj.Links}
	return nil
}
