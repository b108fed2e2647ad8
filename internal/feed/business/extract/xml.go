package extract

import (
	"encoding/xml"
	"errors"
	"io"
	"strings"

	"gosupermarket_api/internal/feed/models"
)

// xmlNode is a minimal element tree. Government feed schemas differ per
// provider (namespaces, nesting, Hebrew tag names), so records are located by
// local element name rather than a fixed schema.
type xmlNode struct {
	name     string
	text     string
	children []*xmlNode
}

func parseXMLTree(text string) (*xmlNode, error) {
	dec := xml.NewDecoder(strings.NewReader(text))
	dec.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		return input, nil
	}
	root := &xmlNode{}
	stack := []*xmlNode{root}
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			n := &xmlNode{name: t.Name.Local}
			parent := stack[len(stack)-1]
			parent.children = append(parent.children, n)
			stack = append(stack, n)
		case xml.EndElement:
			if len(stack) > 1 {
				stack = stack[:len(stack)-1]
			}
		case xml.CharData:
			cur := stack[len(stack)-1]
			cur.text += string(t)
		}
	}
	if len(root.children) == 0 {
		return nil, errors.New("xml document has no elements")
	}
	return root.children[0], nil
}

func (n *xmlNode) findAll(name string, out *[]*xmlNode) {
	for _, c := range n.children {
		if strings.EqualFold(c.name, name) {
			*out = append(*out, c)
		}
		c.findAll(name, out)
	}
}

// childText returns the first non-empty text among the candidate child tags,
// searched in order (direct children first, then any depth).
func (n *xmlNode) childText(candidates ...string) string {
	for _, name := range candidates {
		for _, c := range n.children {
			if strings.EqualFold(c.name, name) {
				if v := strings.TrimSpace(c.text); v != "" {
					return v
				}
			}
		}
	}
	for _, name := range candidates {
		var found []*xmlNode
		n.findAll(name, &found)
		for _, c := range found {
			if v := strings.TrimSpace(c.text); v != "" {
				return v
			}
		}
	}
	return ""
}

var barcodeTags = []string{"Barcode", "ItemBarCode", "ItemCode", "ItemID", "ItemId", "Code", "ProductId", "ProductID"}

func parseXML(text string, feedType models.FeedType) ([]models.RawRecord, error) {
	root, err := parseXMLTree(text)
	if err != nil {
		return nil, err
	}

	var records []models.RawRecord
	if feedType == models.FeedTypePromos {
		records = append(records, xmlPromotions(root)...)
	}
	if len(records) == 0 {
		records = append(records, xmlPriceItems(root)...)
	}
	records = append(records, xmlStores(root)...)
	return records, nil
}

func xmlPriceItems(root *xmlNode) []models.RawRecord {
	var nodes []*xmlNode
	for _, name := range []string{"Item", "Product"} {
		root.findAll(name, &nodes)
		if len(nodes) > 0 {
			break
		}
	}
	var out []models.RawRecord
	for _, n := range nodes {
		rec := models.PriceRecord{
			Code:      n.childText(barcodeTags...),
			Name:      n.childText("ItemName", "ProductName", "Name", "שם_מוצר"),
			PriceText: n.childText("ItemPrice", "Price", "מחיר"),
			Unit:      n.childText("UnitQty", "UnitOfMeasure", "Unit", "Quantity", "יחידה"),
			UpdatedAt: n.childText("PriceUpdateDate", "UpdateDate", "UpdatedAt"),
		}
		if rec.Name == "" && rec.PriceText == "" && rec.Code == "" {
			continue
		}
		out = append(out, models.RawRecord{Kind: models.KindPrice, Price: &rec})
	}
	return out
}

func xmlPromotions(root *xmlNode) []models.RawRecord {
	var nodes []*xmlNode
	root.findAll("Promotion", &nodes)
	var out []models.RawRecord
	for _, n := range nodes {
		rec := models.PromoRecord{
			PromotionID:     n.childText("PromotionId", "PromotionID", "PromoId"),
			Description:     n.childText("PromotionDescription", "Description", "Name"),
			DiscountedPrice: parseOptionalFloat(n.childText("DiscountedPrice", "Price")),
			MinQty:          parseOptionalFloat(n.childText("MinQty", "MinQuantity")),
			StartAt:         n.childText("PromotionStartDate", "StartDate"),
			EndAt:           n.childText("PromotionEndDate", "EndDate"),
			Barcodes:        promoBarcodes(n),
		}
		out = append(out, models.RawRecord{Kind: models.KindPromotion, Promo: &rec})
	}
	return out
}

// promoBarcodes harvests every plausible item code mentioned anywhere under a
// promotion element: directly, and inside nested Item lists.
func promoBarcodes(n *xmlNode) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(v string) {
		code := cleanBarcode(v)
		if code == "" {
			return
		}
		if _, ok := seen[code]; ok {
			return
		}
		seen[code] = struct{}{}
		out = append(out, code)
	}
	for _, tag := range barcodeTags {
		var found []*xmlNode
		n.findAll(tag, &found)
		for _, c := range found {
			add(c.text)
		}
	}
	return out
}

func xmlStores(root *xmlNode) []models.RawRecord {
	var nodes []*xmlNode
	root.findAll("Store", &nodes)
	if len(nodes) == 0 {
		root.findAll("Branch", &nodes)
	}
	var out []models.RawRecord
	for _, n := range nodes {
		rec := models.StoreRecord{
			BranchCode: n.childText("StoreId", "StoreID", "BranchCode", "StoreNo"),
			Name:       n.childText("StoreName", "Name"),
			City:       n.childText("City"),
			Address:    n.childText("Address"),
		}
		if rec.BranchCode == "" && rec.Name == "" {
			continue
		}
		out = append(out, models.RawRecord{Kind: models.KindStore, Store: &rec})
	}
	return out
}
