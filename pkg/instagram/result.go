package instagram

// Media item types
const (
	MediaTypeImage = "image"
	MediaTypeVideo = "video"
)

// Result is the normalized view of a post
type Result struct {
	ResultsCount        int         `json:"resultsCount" yaml:"resultsCount"`
	URLs                []string    `json:"urls" yaml:"urls"`
	Username            string      `json:"username" yaml:"username"`
	Name                string      `json:"name" yaml:"name"`
	IsVerified          bool        `json:"isVerified" yaml:"isVerified"`
	IsPrivate           bool        `json:"isPrivate" yaml:"isPrivate"`
	CommentsDisabled    bool        `json:"commentsDisabled" yaml:"commentsDisabled"`
	LikeCounterDisabled bool        `json:"likeCounterDisabled" yaml:"likeCounterDisabled"`
	Location            string      `json:"location" yaml:"location"`
	Followers           *int64      `json:"followers" yaml:"followers"`
	Likes               int64       `json:"likes" yaml:"likes"`
	IsAd                bool        `json:"isAd" yaml:"isAd"`
	Caption             string      `json:"caption" yaml:"caption"`
	CreatedAt           *int64      `json:"createdAt" yaml:"createdAt"`
	Media               []MediaItem `json:"media" yaml:"media"`
}

// MediaItem describes one image or video of a post. VideoViewCount and
// Thumbnail are only set for videos.
type MediaItem struct {
	Type           string     `json:"type" yaml:"type"`
	Dimensions     Dimensions `json:"dimensions" yaml:"dimensions"`
	URL            string     `json:"url" yaml:"url"`
	VideoViewCount *int64     `json:"videoViewCount,omitempty" yaml:"videoViewCount,omitempty"`
	Thumbnail      *string    `json:"thumbnail,omitempty" yaml:"thumbnail,omitempty"`
}

// IsVideo reports whether the item is a video
func (m MediaItem) IsVideo() bool {
	return m.Type == MediaTypeVideo
}
