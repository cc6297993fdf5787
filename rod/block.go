package rod

import (
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// BlockedResourceTypes are aborted when resource blocking is enabled.
// Detail pages only need the document and its scripts.
var BlockedResourceTypes = []proto.NetworkResourceType{
	proto.NetworkResourceTypeImage,
	proto.NetworkResourceTypeStylesheet,
	proto.NetworkResourceTypeFont,
	proto.NetworkResourceTypeMedia,
}

// blockResources starts a hijack router on page that fails every request of
// a blocked type. Other requests are not intercepted.
func blockResources(page *rod.Page) (*rod.HijackRouter, error) {
	router := page.HijackRequests()
	for _, t := range BlockedResourceTypes {
		if err := router.Add("*", t, func(h *rod.Hijack) {
			h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
		}); err != nil {
			_ = router.Stop()
			return nil, err
		}
	}
	go router.Run()
	return router, nil
}
