package rpc

import (
	"context"
	"fmt"
	"net/http"

	"apphost/internal/logger"
)

// httpClient HTTP客户端实现
type httpClient struct {
	config *HTTPConfig
	client *http.Client
}

/**
 * Create new HTTP client for the launcher control API
 * @param {HTTPConfig} config - HTTP client configuration, nil uses DefaultHTTPConfig
 * @returns {HTTPClient} HTTP client interface
 * @example
 * client := NewHTTPClient(nil)
 * defer client.Close()
 * resp, err := client.Get("/apphost/api/v1/resources", nil)
 */
func NewHTTPClient(config *HTTPConfig) HTTPClient {
	if config == nil {
		config = DefaultHTTPConfig()
	}
	return &httpClient{
		config: config,
		client: &http.Client{
			Transport: &http.Transport{},
			Timeout:   config.Timeout,
		},
	}
}

// Get 发送GET请求
func (c *httpClient) Get(path string, params map[string]interface{}) (*HTTPResponse, error) {
	url, err := buildURL(c.config.BaseURL, path, params)
	if err != nil {
		return nil, fmt.Errorf("failed to build URL: %w", err)
	}
	logger.Debugf("Sending GET request to %s", url)
	return c.do(http.MethodGet, url, nil)
}

/**
 * Send POST request to the control API
 * @param {string} path - API endpoint path
 * @param {interface{}} data - Request body, serialized as JSON, nil sends no body
 * @returns {*HTTPResponse} Status, headers and raw body
 * @returns {error} Error if the request could not be sent
 * @description
 * - Non-2xx answers are not errors; HTTPResponse.Error carries the message
 */
func (c *httpClient) Post(path string, data interface{}) (*HTTPResponse, error) {
	url, err := buildURL(c.config.BaseURL, path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build URL: %w", err)
	}
	logger.Debugf("Sending POST request to %s", url)
	return c.do(http.MethodPost, url, data)
}

func (c *httpClient) do(method, url string, data interface{}) (*HTTPResponse, error) {
	body, err := serializeData(data)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	httpResp, err := deserializeResponse(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize response: %w", err)
	}
	return httpResp, nil
}

// Close 关闭空闲连接
func (c *httpClient) Close() error {
	c.client.CloseIdleConnections()
	return nil
}
