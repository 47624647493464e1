// Package instagram validates Instagram content URLs and fetches media
// descriptions for them from the upstream extraction service.
//
// This package includes:
//   - URL shape validation for posts, reels and IGTV videos
//   - An HTTP client for the form-encoded upstream API
//   - Lenient decoding of upstream responses into models.MediaResult
//
// Example usage:
//
//	if err := instagram.ValidateURL(u); err != nil {
//	    return err
//	}
//
//	client := instagram.NewClient(&cfg.Upstream, log)
//	result, err := client.Fetch(ctx, u)
//	if err != nil {
//	    // err is an *errors.Error with NO_MEDIA_FOUND or FETCH_FAILED
//	}
package instagram
