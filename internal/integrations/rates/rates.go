// Package rates fetches a reference base rate used to price approved draws.
package rates

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/beevik/etree"
	"github.com/sirupsen/logrus"

	"github.com/tglc-labs/liquidity-service/internal/config"
)

// Client fetches the central-bank key rate over the SOAP feed and applies
// the platform lending margin on top.
type Client struct {
	url    string
	margin float64
	client *http.Client
	log    *logrus.Logger
}

// NewClient initializes a base-rate client.
func NewClient(cfg *config.Config, log *logrus.Logger) *Client {
	return &Client{
		url:    cfg.RatesURL,
		margin: cfg.LendingMargin,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		log: log,
	}
}

// buildSOAPRequest creates the key-rate query for the trailing 30 days.
func (c *Client) buildSOAPRequest() string {
	fromDate := time.Now().AddDate(0, 0, -30).Format("2006-01-02")
	toDate := time.Now().Format("2006-01-02")
	return fmt.Sprintf(`<?xml version="1.0" encoding="utf-8"?>
		<soap12:Envelope xmlns:soap12="http://www.w3.org/2003/05/soap-envelope">
			<soap12:Body>
				<KeyRate xmlns="http://web.cbr.ru/">
					<fromDate>%s</fromDate>
					<ToDate>%s</ToDate>
				</KeyRate>
			</soap12:Body>
		</soap12:Envelope>`, fromDate, toDate)
}

func (c *Client) sendRequest(soapRequest string) ([]byte, error) {
	req, err := http.NewRequest("POST", c.url, bytes.NewBuffer([]byte(soapRequest)))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %v", err)
	}

	req.Header.Set("Content-Type", "application/soap+xml; charset=utf-8")
	req.Header.Set("SOAPAction", "http://web.cbr.ru/KeyRate")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %v", err)
	}

	c.log.Debugf("Rates XML response: %s", string(body))
	return body, nil
}

// parseXMLResponse extracts the most recent key rate from the feed.
func (c *Client) parseXMLResponse(rawBody []byte) (float64, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(rawBody); err != nil {
		return 0, fmt.Errorf("failed to parse XML: %v", err)
	}

	krElements := doc.FindElements("//diffgram/KeyRate/KR")
	if len(krElements) == 0 {
		return 0, fmt.Errorf("no key rate data found in XML")
	}

	rateElement := krElements[0].FindElement("./Rate")
	if rateElement == nil {
		return 0, fmt.Errorf("rate element not found in XML")
	}

	var rate float64
	if _, err := fmt.Sscanf(rateElement.Text(), "%f", &rate); err != nil {
		return 0, fmt.Errorf("failed to parse rate: %v", err)
	}

	return rate, nil
}

// LendingRate returns the current base rate plus the platform margin.
func (c *Client) LendingRate() (float64, error) {
	body, err := c.sendRequest(c.buildSOAPRequest())
	if err != nil {
		return 0, err
	}

	rate, err := c.parseXMLResponse(body)
	if err != nil {
		return 0, err
	}

	rate += c.margin
	c.log.Infof("Retrieved lending rate: %.2f%% (including %.2f%% margin)", rate, c.margin)
	return rate, nil
}
