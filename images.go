package prismlate

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// ProtectedImage is an <img> taken out of a rich-text fragment while the
// rest of the fragment is translated.
type ProtectedImage struct {
	Token string
	Src   string
	Alt   string

	nonce  string
	node   *html.Node
	hadAlt bool
}

// Markup renders the image with its current Alt.
func (p *ProtectedImage) Markup() string {
	if p.node == nil {
		return ""
	}
	if p.hadAlt || p.Alt != "" {
		setAttr(p.node, "alt", p.Alt)
	}
	var b strings.Builder
	if err := html.Render(&b, p.node); err != nil {
		return ""
	}
	return b.String()
}

// Placeholder tokens carry a nonce derived from the fragment, so text
// that merely looks like a token is never mistaken for one.
func imageToken(nonce string, i int) string {
	return fmt.Sprintf("[[IMG_%s_%d]]", nonce, i)
}

func placeholderPattern(nonce string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)\[\[\s*IMG_` + regexp.QuoteMeta(nonce) + `_(\d+)\s*\]\]`)
}

func imageNonce(fragment string) string {
	return HashText(fragment)[:8]
}

// ProtectImages replaces every <img> in fragment with a unique text
// placeholder and returns the rewritten fragment with the removed images.
func ProtectImages(fragment string) (string, []*ProtectedImage, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<body>" + fragment + "</body>"))
	if err != nil {
		return "", nil, &TranslationError{Message: "failed to parse rich text", Cause: err}
	}
	body := doc.Find("body")

	nonce := imageNonce(fragment)
	var images []*ProtectedImage
	body.Find("img").Each(func(i int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		alt, hadAlt := s.Attr("alt")
		img := &ProtectedImage{
			Token:  imageToken(nonce, i),
			nonce:  nonce,
			Src:    src,
			Alt:    alt,
			node:   s.Nodes[0],
			hadAlt: hadAlt,
		}
		images = append(images, img)
		s.ReplaceWithNodes(&html.Node{Type: html.TextNode, Data: img.Token})
	})

	if len(images) == 0 {
		return fragment, nil, nil
	}

	out, err := body.Html()
	if err != nil {
		return "", nil, &TranslationError{Message: "failed to serialize rich text", Cause: err}
	}
	return out, images, nil
}

// RestoreImages puts the protected images back in place of their
// placeholders. Images whose placeholder went missing in translation are
// appended so that no image is lost; repeated placeholders are dropped.
func RestoreImages(translated string, images []*ProtectedImage) string {
	if len(images) == 0 {
		return translated
	}

	pattern := placeholderPattern(images[0].nonce)
	used := make(map[int]bool)
	out := pattern.ReplaceAllStringFunc(translated, func(m string) string {
		sub := pattern.FindStringSubmatch(m)
		i, err := strconv.Atoi(sub[1])
		if err != nil || i >= len(images) || used[i] {
			return ""
		}
		used[i] = true
		return images[i].Markup()
	})

	for i, img := range images {
		if !used[i] {
			out += img.Markup()
		}
	}
	return out
}

// TranslateRichText translates an HTML fragment as one unit while keeping
// inline images out of the provider's hands. Alt texts are translated
// independently; an alt text that fails to translate keeps its original value.
// When neither the text nor any alt text comes back changed, req.Text is
// returned as-is.
func TranslateRichText(ctx context.Context, gw Gateway, req Request) (string, error) {
	out, _, err := translateRichText(ctx, gw, req)
	return out, err
}

// translateRichText is TranslateRichText reporting whether the provider
// changed anything. The comparison is made on the provider's raw output,
// before images are rendered back in.
func translateRichText(ctx context.Context, gw Gateway, req Request) (string, bool, error) {
	protected, images, err := ProtectImages(req.Text)
	if err != nil {
		return "", false, err
	}

	changed := false
	for _, img := range images {
		if strings.TrimSpace(img.Alt) == "" {
			continue
		}
		altReq := req
		altReq.Text = img.Alt
		altReq.HTML = false
		alt, err := gw.Translate(ctx, altReq)
		if err != nil || strings.TrimSpace(alt) == "" {
			continue
		}
		if alt = strings.TrimSpace(alt); alt != img.Alt {
			img.Alt = alt
			changed = true
		}
	}

	translated := protected
	if hasTranslatableText(protected, images) {
		htmlReq := req
		htmlReq.Text = protected
		htmlReq.HTML = true
		translated, err = gw.Translate(ctx, htmlReq)
		if err != nil {
			return "", false, err
		}
		if strings.TrimSpace(translated) != strings.TrimSpace(protected) {
			changed = true
		}
	}

	if !changed {
		return req.Text, false, nil
	}
	return RestoreImages(translated, images), true, nil
}

// hasTranslatableText reports whether fragment holds any text apart from
// tags and image placeholders.
func hasTranslatableText(fragment string, images []*ProtectedImage) bool {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<body>" + fragment + "</body>"))
	if err != nil {
		return strings.TrimSpace(fragment) != ""
	}
	text := doc.Find("body").Text()
	if len(images) > 0 {
		text = placeholderPattern(images[0].nonce).ReplaceAllString(text, "")
	}
	return strings.TrimSpace(text) != ""
}

func setAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}
