package handler

import "encoding/base64"

const pixelBase64 = "R0lGODlhAQABAIAAAAAAAP///yH5BAEAAAAALAAAAAABAAEAAAIBRAA7"

// pixelGIF is the 43-byte transparent 1x1 GIF served on every beacon hit.
var pixelGIF = mustDecode(pixelBase64)

func mustDecode(s string) []byte {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		panic(err)
	}
	return b
}

// Pixel returns a copy of the beacon image.
func Pixel() []byte {
	return append([]byte(nil), pixelGIF...)
}
