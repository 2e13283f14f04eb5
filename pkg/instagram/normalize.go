package instagram

import "sort"

// or dereferences p, returning def when p is nil
func or[T any](p *T, def T) T {
	if p == nil {
		return def
	}
	return *p
}

// Normalize maps a raw media node to a Result. Missing optional fields take
// their zero defaults; node is never modified.
func Normalize(node *Node) *Result {
	result := &Result{
		URLs:  []string{},
		Media: []MediaItem{},
	}
	if node == nil {
		return result
	}

	items := []*Node{node}
	if node.Shape() == ShapeCarousel {
		items = node.Children()
	}

	for _, item := range items {
		result.Media = append(result.Media, formatMedia(item))
		result.URLs = append(result.URLs, directURL(item))
	}
	result.ResultsCount = len(result.URLs)

	fillPostInfo(result, node)
	return result
}

func fillPostInfo(result *Result, node *Node) {
	if owner := node.Owner; owner != nil {
		result.Username = or(owner.Username, "")
		result.Name = or(owner.FullName, "")
		result.IsVerified = or(owner.IsVerified, false)
		result.IsPrivate = or(owner.IsPrivate, false)
		if owner.EdgeFollowedBy != nil && owner.EdgeFollowedBy.Count != nil {
			followers := *owner.EdgeFollowedBy.Count
			result.Followers = &followers
		}
	}

	result.CommentsDisabled = or(node.CommentsDisabled, false)
	result.LikeCounterDisabled = or(node.LikeAndViewCountsDisabled, false)
	if node.Location != nil {
		result.Location = or(node.Location.Name, "")
	}
	if node.EdgeMediaPreviewLike != nil {
		result.Likes = or(node.EdgeMediaPreviewLike.Count, 0)
	}
	result.IsAd = or(node.IsAd, false)

	if node.EdgeMediaToCaption != nil && len(node.EdgeMediaToCaption.Edges) > 0 {
		if caption := node.EdgeMediaToCaption.Edges[0].Node; caption != nil {
			result.Caption = or(caption.Text, "")
			if caption.CreatedAt != nil {
				createdAt := int64(*caption.CreatedAt)
				result.CreatedAt = &createdAt
			}
		}
	}
}

// directURL is the URL listed in Result.URLs for a media node
func directURL(node *Node) string {
	if node.IsVideo {
		return or(node.VideoURL, "")
	}
	return or(node.DisplayURL, "")
}

func formatMedia(node *Node) MediaItem {
	dimensions := or(node.Dimensions, Dimensions{})
	imageURL, imageDimensions := bestImage(node)

	if node.IsVideo {
		views := or(node.VideoViewCount, 0)
		return MediaItem{
			Type:           MediaTypeVideo,
			Dimensions:     dimensions,
			URL:            or(node.VideoURL, ""),
			VideoViewCount: &views,
			Thumbnail:      &imageURL,
		}
	}

	return MediaItem{
		Type:       MediaTypeImage,
		Dimensions: imageDimensions,
		URL:        imageURL,
	}
}

// bestImage picks the widest display resource, falling back to the node's
// display URL and dimensions
func bestImage(node *Node) (string, Dimensions) {
	imageURL := or(node.DisplayURL, "")
	dimensions := or(node.Dimensions, Dimensions{})

	if len(node.DisplayResources) == 0 {
		return imageURL, dimensions
	}

	resources := make([]DisplayResource, len(node.DisplayResources))
	copy(resources, node.DisplayResources)
	sort.SliceStable(resources, func(i, j int) bool {
		return or(resources[i].ConfigWidth, 0) > or(resources[j].ConfigWidth, 0)
	})

	best := resources[0]
	if best.Src == "" {
		return imageURL, dimensions
	}

	return best.Src, Dimensions{
		Width:  or(best.ConfigWidth, dimensions.Width),
		Height: or(best.ConfigHeight, dimensions.Height),
	}
}
