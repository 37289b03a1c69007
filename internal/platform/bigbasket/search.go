package bigbasket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/avishek-m/pricecompare/internal/domain"
	"github.com/avishek-m/pricecompare/internal/matching"
	"github.com/avishek-m/pricecompare/internal/platform"
	"github.com/avishek-m/pricecompare/internal/proxyclient"
	apperrors "github.com/avishek-m/pricecompare/pkg/errors"
)

type searchResponse struct {
	PageProps struct {
		SSRData struct {
			Tabs []struct {
				ProductInfo struct {
					Products []product `json:"products"`
				} `json:"product_info"`
			} `json:"tabs"`
		} `json:"SSRData"`
	} `json:"pageProps"`
}

type product struct {
	Desc         string `json:"desc"`
	AbsoluteURL  string `json:"absolute_url"`
	W            string `json:"w"`
	Availability struct {
		AvailStatus string `json:"avail_status"`
	} `json:"availability"`
	Images []struct {
		S string `json:"s"`
	} `json:"images"`
	Pricing struct {
		Discount struct {
			PrimPrice struct {
				SP json.Number `json:"sp"`
			} `json:"prim_price"`
		} `json:"discount"`
	} `json:"pricing"`
	Children []product `json:"children"`
}

// search performs one search attempt and formats the response. The second
// return reports whether the upstream answered 404, which spec §4.4.1 treats
// as a stale buildId: an empty result that should trigger re-acquisition,
// not an error.
func (h *Handler) search(ctx context.Context, query string, cred *domain.BigBasketCredential) ([]domain.ProductListing, bool, error) {
	reqURL := fmt.Sprintf("https://www.bigbasket.com/_next/data/%s/ps.json?q=%s&nc=as&listing=ps",
		cred.BuildID, url.QueryEscape(query))

	headers := mergeHeaders(cred.Headers, map[string]string{
		"accept":         "*/*",
		"x-nextjs-data":  "1",
		"Cookie":         cookieString(cred.Cookies),
	})

	resp, err := h.proxy.Get(ctx, reqURL, headers, platform.RandomSessionID())
	if err != nil {
		if status, ok := proxyclient.StatusCode(err); ok && status == 404 {
			return nil, true, nil
		}
		return nil, false, err
	}

	var parsed searchResponse
	if err := json.Unmarshal(resp.Body, &parsed); err != nil {
		return nil, false, apperrors.Parse("BIGBASKET", err)
	}

	var listings []domain.ProductListing
	for _, tab := range parsed.PageProps.SSRData.Tabs {
		for _, p := range tab.ProductInfo.Products {
			listings = append(listings, formatProduct(p)...)
		}
		break // products live only on the first tab, per spec §4.4.1.
	}
	return listings, false, nil
}

func formatProduct(p product) []domain.ProductListing {
	var out []domain.ProductListing
	if l, ok := toListing(p); ok {
		out = append(out, l)
	}
	for _, child := range p.Children {
		if l, ok := toListing(child); ok {
			out = append(out, l)
		}
	}
	return out
}

func toListing(p product) (domain.ProductListing, bool) {
	if p.Availability.AvailStatus != "001" {
		return domain.ProductListing{}, false
	}
	if len(p.Images) == 0 {
		return domain.ProductListing{}, false
	}
	price, priceOk := matching.ParsePrice(p.Pricing.Discount.PrimPrice.SP.String())
	return domain.ProductListing{
		Platform: domain.BigBasket,
		Name:     p.Desc,
		Price:    price,
		PriceOk:  priceOk,
		RawPrice: p.Pricing.Discount.PrimPrice.SP.String(),
		Quantity: matching.ParseQuantity(p.W),
		URL:      "https://www.bigbasket.com" + p.AbsoluteURL,
		ImageURL: p.Images[0].S,
	}, true
}

func cookieString(cookies map[string]string) string {
	return cookieHeader(cookies)["Cookie"]
}
