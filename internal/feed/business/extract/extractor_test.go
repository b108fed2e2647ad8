package extract

import (
	"bytes"
	"compress/gzip"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"gosupermarket_api/internal/feed/models"
	"gosupermarket_api/pkg/logger"
)

func testExtractor() *Extractor {
	return NewExtractor(logger.NewLogger(io.Discard, "[test]"))
}

func gzipBytes(t *testing.T, body []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write(body)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

const priceXML = `<?xml version="1.0" encoding="UTF-8"?>
<Root>
  <Items>
    <Item>
      <ItemCode>7290000066318</ItemCode>
      <ItemName>חלב תנובה 3% 1 ליטר</ItemName>
      <ItemPrice>6.90</ItemPrice>
      <UnitQty>ליטר</UnitQty>
      <PriceUpdateDate>2024-05-01 08:30</PriceUpdateDate>
    </Item>
    <Item>
      <ItemCode>7290001234567</ItemCode>
      <ItemName>לחם אחיד</ItemName>
      <ItemPrice>₪ 5.20</ItemPrice>
    </Item>
  </Items>
</Root>`

func TestExtractXMLPrices(t *testing.T) {
	records, feedType, err := testExtractor().Extract([]byte(priceXML), "providers/shufersal/012/pricesFull_202405010830.gz")
	require.NoError(t, err)
	require.Equal(t, models.FeedTypePrices, feedType)
	require.Len(t, records, 2)

	first := records[0]
	require.Equal(t, models.KindPrice, first.Kind)
	require.Equal(t, "7290000066318", first.Price.Code)
	require.Equal(t, "חלב תנובה 3% 1 ליטר", first.Price.Name)
	require.InDelta(t, 6.9, first.Price.Price, 1e-9)
	require.Equal(t, "ליטר", first.Price.Unit)

	// Currency symbol in the price column is coerced, not fatal.
	require.InDelta(t, 5.2, records[1].Price.Price, 1e-9)
}

func TestExtractGzippedPayload(t *testing.T) {
	raw := gzipBytes(t, []byte(priceXML))
	records, _, err := testExtractor().Extract(raw, "providers/shufersal/012/pricesFull_202405010830.gz")
	require.NoError(t, err)
	require.Len(t, records, 2)
}

func TestExtractBOMPrefixedPayload(t *testing.T) {
	raw := append([]byte("\xef\xbb\xbf"), []byte(priceXML)...)
	records, _, err := testExtractor().Extract(raw, "providers/shufersal/012/pricesFull_202405010830.gz")
	require.NoError(t, err)
	require.Len(t, records, 2)
}

func TestExtractCorruptGzip(t *testing.T) {
	raw := []byte{0x1f, 0x8b, 0xff, 0x00, 0x01}
	_, _, err := testExtractor().Extract(raw, "providers/shufersal/012/pricesFull_202405010830.gz")

	var formatErr *models.FormatError
	require.ErrorAs(t, err, &formatErr)
	require.False(t, formatErr.SoftSkip)
}

func TestExtractHTMLPageSoftSkips(t *testing.T) {
	page := []byte("<!DOCTYPE html>\n<html><body><h1>503 Service Unavailable</h1></body></html>")
	_, _, err := testExtractor().Extract(page, "providers/rami-levy/001/pricesFull_202405010830.gz")

	var formatErr *models.FormatError
	require.ErrorAs(t, err, &formatErr)
	require.True(t, formatErr.SoftSkip)
}

func TestExtractPromotionsXML(t *testing.T) {
	promoXML := `<Promos>
  <Promotion>
    <PromotionId>4411</PromotionId>
    <PromotionDescription>2 ב-20</PromotionDescription>
    <DiscountedPrice>10.00</DiscountedPrice>
    <MinQty>2</MinQty>
    <PromotionItems>
      <Item><ItemCode>7290000066318</ItemCode></Item>
      <Item><ItemCode>7290001234567</ItemCode></Item>
    </PromotionItems>
  </Promotion>
</Promos>`

	records, feedType, err := testExtractor().Extract([]byte(promoXML), "providers/shufersal/012/promoFull_202405010830.gz")
	require.NoError(t, err)
	require.Equal(t, models.FeedTypePromos, feedType)
	require.Len(t, records, 1)

	promo := records[0]
	require.Equal(t, models.KindPromotion, promo.Kind)
	require.Equal(t, "4411", promo.Promo.PromotionID)
	require.Equal(t, []string{"7290000066318", "7290001234567"}, promo.Promo.Barcodes)
	require.NotNil(t, promo.Promo.DiscountedPrice)
	require.InDelta(t, 10.0, *promo.Promo.DiscountedPrice, 1e-9)
	require.NotNil(t, promo.Promo.MinQty)
	require.InDelta(t, 2.0, *promo.Promo.MinQty, 1e-9)
}

func TestExtractCSV(t *testing.T) {
	csv := "barcode,name,price,unit\n7290000066318,יוגורט טרה,4.30,יחידה\nbadrow,ללא מחיר,free,\n"
	records, _, err := testExtractor().Extract([]byte(csv), "providers/victory/007/pricesFull_202405011200.gz")
	require.NoError(t, err)
	// The unparseable price row is dropped, not fatal.
	require.Len(t, records, 1)
	require.Equal(t, "7290000066318", records[0].Price.Code)
	require.InDelta(t, 4.3, records[0].Price.Price, 1e-9)
}

func TestExtractJSON(t *testing.T) {
	payload := `{"items":[{"barcode":"7290000066318","name":"קפה נמס","price":"21,90"}]}`
	records, _, err := testExtractor().Extract([]byte(payload), "providers/victory/007/pricesFull_202405011200.gz")
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.InDelta(t, 21.9, records[0].Price.Price, 1e-9)
}

func TestExtractWindows1255Payload(t *testing.T) {
	utf8XML := `<Items><Item><ItemCode>7290000066318</ItemCode><ItemName>חלב</ItemName><ItemPrice>6.90</ItemPrice></Item></Items>`
	encoded, _, err := transform.Bytes(charmap.Windows1255.NewEncoder(), []byte(utf8XML))
	require.NoError(t, err)
	require.False(t, bytes.Equal(encoded, []byte(utf8XML)))

	records, _, extractErr := testExtractor().Extract(encoded, "providers/shufersal/012/pricesFull_202405010830.gz")
	require.NoError(t, extractErr)
	require.Len(t, records, 1)
	require.Equal(t, "חלב", records[0].Price.Name)
}

func TestExtractGarbageIsFormatError(t *testing.T) {
	_, _, err := testExtractor().Extract([]byte("<Items><broken"), "providers/shufersal/012/pricesFull_202405010830.gz")
	var formatErr *models.FormatError
	require.True(t, errors.As(err, &formatErr))
}
