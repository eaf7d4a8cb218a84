// Package xtream provides a Go client for the live TV surface of the Xtream Codes API.
//
// Xtream Codes is an IPTV panel system. This client covers what a live player
// needs: live categories and streams, the short EPG, the XMLTV guide and
// live stream URLs.
//
// # Basic Usage
//
//	client := xtream.NewClient("http://primestreams.tv:826", "username", "password")
//
//	categories, err := client.GetLiveCategories(ctx)
//	streams, err := client.GetLiveStreams(ctx, "")
//	epg, err := client.GetShortEPG(ctx, 501, 4)
//
// # Stream URLs
//
//	// HLS: http://primestreams.tv:826/live/username/password/501.m3u8
//	client.LiveStreamURL(501, xtream.ExtensionHLS)
//
//	// Raw MPEG-TS, used by casting receivers
//	client.LiveStreamURL(501, xtream.ExtensionTS)
//
// # Short EPG text
//
// Panels return short EPG titles and descriptions base64 encoded. Use
// EPGListing.DecodedTitle and EPGListing.DecodedDescription to read them.
package xtream
