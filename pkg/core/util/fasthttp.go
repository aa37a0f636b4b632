package util

import (
	"fmt"
	"time"

	json "github.com/json-iterator/go"
	"github.com/tidwall/gjson"
	"github.com/valyala/fasthttp"
)

const defaultTimeout = 10 * time.Second

type Header struct {
	Key   string
	Value string
}

type Http struct {
	Url        string
	Body       interface{}
	Headers    []Header
	Timeout    time.Duration
	StatusCode int
	Response   []byte
}

func NewHttp(url string, body interface{}, headers ...Header) *Http {
	return &Http{
		Url:     url,
		Body:    body,
		Headers: headers,
		Timeout: defaultTimeout,
	}
}

// Post 以 JSON 发送请求体，任何 2xx 视为成功，响应体允许为空
func (h *Http) Post() error {
	request := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(request)
	response := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(response)

	request.Header.SetMethod(fasthttp.MethodPost)
	request.SetRequestURI(h.Url)
	request.Header.SetContentType("application/json")

	if h.Body != nil {
		jsonBytes, err := json.Marshal(h.Body)
		if err != nil {
			return err
		}
		request.SetBody(jsonBytes)
	}

	for _, header := range h.Headers {
		request.Header.Set(header.Key, header.Value)
	}

	timeout := h.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if err := fasthttp.DoTimeout(request, response, timeout); err != nil {
		return err
	}

	h.StatusCode = response.StatusCode()
	h.Response = append([]byte(nil), response.Body()...)

	if h.StatusCode < 200 || h.StatusCode >= 300 {
		return fmt.Errorf("POST request failed, status code: %d，body: %s", h.StatusCode, string(h.Response))
	}
	return nil
}

// Result 响应为空时返回空结果
func (h *Http) Result() *gjson.Result {
	result := gjson.ParseBytes(h.Response)
	return &result
}

func HttpPost(uri string, v interface{}, headers ...Header) (*gjson.Result, error) {
	h := NewHttp(uri, v, headers...)
	if err := h.Post(); err != nil {
		return nil, err
	}
	return h.Result(), nil
}

// HttpPostTimeout 同 HttpPost，使用自定义超时
func HttpPostTimeout(uri string, v interface{}, timeout time.Duration, headers ...Header) (*gjson.Result, error) {
	h := NewHttp(uri, v, headers...)
	h.Timeout = timeout
	if err := h.Post(); err != nil {
		return nil, err
	}
	return h.Result(), nil
}
