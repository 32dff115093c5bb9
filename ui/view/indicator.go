package view

import (
	"github.com/soocke/peekerguard-go/domain/alert"
)

// BannerIndicator shows the background-activity notice in the control
// window. It implements guard.Indicator and may be called from any goroutine.
type BannerIndicator struct {
	root     *RootView
	dispatch alert.Dispatcher
}

func NewBannerIndicator(root *RootView, dispatch alert.Dispatcher) *BannerIndicator {
	return &BannerIndicator{root: root, dispatch: dispatch}
}

func (b *BannerIndicator) Show(title, text string) error {
	b.dispatch.Dispatch(func() { b.root.SetBanner(title, text) })
	return nil
}

func (b *BannerIndicator) Hide() error {
	b.dispatch.Dispatch(func() { b.root.SetBanner("", "") })
	return nil
}
