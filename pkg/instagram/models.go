package instagram

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Typenames of the media nodes returned by the shortcode query
const (
	TypenameSidecar       = "XDTGraphSidecar"
	TypenameLegacySidecar = "GraphSidecar"
)

// GraphQLResponse is the envelope of the shortcode media query
type GraphQLResponse struct {
	Data   *QueryData `json:"data"`
	Status string     `json:"status"`
}

// QueryData holds the media node, nil for private or unsupported posts
type QueryData struct {
	ShortcodeMedia *Node `json:"xdt_shortcode_media"`
}

// Node is a raw media node. Optional upstream fields are pointers so that
// absent and zero can be told apart.
type Node struct {
	Typename         string            `json:"__typename"`
	ID               string            `json:"id"`
	Shortcode        string            `json:"shortcode"`
	IsVideo          bool              `json:"is_video"`
	DisplayURL       *string           `json:"display_url"`
	VideoURL         *string           `json:"video_url"`
	VideoViewCount   *int64            `json:"video_view_count"`
	Dimensions       *Dimensions       `json:"dimensions"`
	DisplayResources []DisplayResource `json:"display_resources"`

	Owner                     *Owner        `json:"owner"`
	Location                  *Location     `json:"location"`
	CommentsDisabled          *bool         `json:"comments_disabled"`
	LikeAndViewCountsDisabled *bool         `json:"like_and_view_counts_disabled"`
	IsAd                      *bool         `json:"is_ad"`
	EdgeMediaPreviewLike      *Count        `json:"edge_media_preview_like"`
	EdgeMediaToCaption        *CaptionEdges `json:"edge_media_to_caption"`
	EdgeSidecarToChildren     *SidecarEdges `json:"edge_sidecar_to_children"`
}

// Shape distinguishes single media posts from carousels
type Shape int

const (
	ShapeSingle Shape = iota
	ShapeCarousel
)

func (s Shape) String() string {
	if s == ShapeCarousel {
		return "carousel"
	}
	return "single"
}

// Shape reports whether the node is a carousel or a single media item
func (n *Node) Shape() Shape {
	switch n.Typename {
	case TypenameSidecar, TypenameLegacySidecar:
		return ShapeCarousel
	default:
		return ShapeSingle
	}
}

// Children returns the carousel child nodes in order
func (n *Node) Children() []*Node {
	if n.EdgeSidecarToChildren == nil {
		return nil
	}
	children := make([]*Node, 0, len(n.EdgeSidecarToChildren.Edges))
	for _, edge := range n.EdgeSidecarToChildren.Edges {
		if edge.Node != nil {
			children = append(children, edge.Node)
		}
	}
	return children
}

// Dimensions is the pixel size of a media item
type Dimensions struct {
	Height int `json:"height" yaml:"height"`
	Width  int `json:"width" yaml:"width"`
}

// DisplayResource is one rendition of an image
type DisplayResource struct {
	Src          string `json:"src"`
	ConfigWidth  *int   `json:"config_width"`
	ConfigHeight *int   `json:"config_height"`
}

// Owner is the account that published the post
type Owner struct {
	Username       *string `json:"username"`
	FullName       *string `json:"full_name"`
	IsVerified     *bool   `json:"is_verified"`
	IsPrivate      *bool   `json:"is_private"`
	EdgeFollowedBy *Count  `json:"edge_followed_by"`
}

// Location is the tagged place of a post
type Location struct {
	Name *string `json:"name"`
}

// Count wraps the edge counters Instagram returns
type Count struct {
	Count *int64 `json:"count"`
}

// CaptionEdges holds the caption nodes, the first one being the caption
type CaptionEdges struct {
	Edges []CaptionEdge `json:"edges"`
}

// CaptionEdge wraps a caption node
type CaptionEdge struct {
	Node *Caption `json:"node"`
}

// Caption is the text of a post and when it was written
type Caption struct {
	Text      *string    `json:"text"`
	CreatedAt *Timestamp `json:"created_at"`
}

// SidecarEdges holds the children of a carousel
type SidecarEdges struct {
	Edges []SidecarEdge `json:"edges"`
}

// SidecarEdge wraps a carousel child
type SidecarEdge struct {
	Node *Node `json:"node"`
}

// Timestamp is a unix time in seconds that Instagram sends either as a JSON
// number or as a numeric string
type Timestamp int64

// UnmarshalJSON accepts 1700000000 and "1700000000"
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		data = []byte(s)
	}

	v, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		f, ferr := strconv.ParseFloat(string(data), 64)
		if ferr != nil {
			return fmt.Errorf("invalid timestamp %q: %w", string(data), err)
		}
		v = int64(f)
	}

	*t = Timestamp(v)
	return nil
}
