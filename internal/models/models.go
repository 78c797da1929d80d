package models

import "errors"

// ErrBadJobPayload возвращается при разборе задания с отсутствующими обязательными полями
var ErrBadJobPayload = errors.New("bad job payload")

// ShortLink связывает короткий идентификатор с оригинальным URL
type ShortLink struct {
	ShortID string `json:"short_id"`
	LongURL string `json:"long_url"`
}

// CreateRequest представляет запрос на создание короткой ссылки
type CreateRequest struct {
	LongURL string `json:"long_url"`
}

// CreateResponse представляет ответ с созданной короткой ссылкой
type CreateResponse struct {
	ShortLink string `json:"short_link"`
	LongURL   string `json:"long_url"`
}

// LinkStats представляет агрегированную статистику по короткой ссылке.
// Агрегат всегда восстановим из первичных данных хранилища и никогда
// не является их единственной копией.
type LinkStats struct {
	ShortLink    string `json:"short_link"`
	LongURL      string `json:"long_url"`
	QRCodeURL    string `json:"qr_code_url,omitempty"`
	UniqueClicks int64  `json:"unique_clicks"`
}

// LeaderboardEntry представляет позицию ссылки в таблице лидеров по кликам
type LeaderboardEntry struct {
	ShortID  string `json:"short_id"`
	Clicks   int64  `json:"clicks"`
	StatsURL string `json:"stats_url"`
}

// ClickHistoryItem представляет одну точку истории кликов из временного ряда
type ClickHistoryItem struct {
	Timestamp int64 `json:"timestamp"`
	Count     int64 `json:"count"`
}

// QRJob представляет задание на генерацию QR-кода для ссылки
type QRJob struct {
	ShortID string
	LongURL string
}

// Fields сериализует задание в поля записи потока
func (j QRJob) Fields() map[string]string {
	return map[string]string{
		"short_id": j.ShortID,
		"long_url": j.LongURL,
	}
}

// QRJobFromFields восстанавливает задание из полей записи потока
func QRJobFromFields(fields map[string]string) (QRJob, error) {
	job := QRJob{
		ShortID: fields["short_id"],
		LongURL: fields["long_url"],
	}
	if job.ShortID == "" || job.LongURL == "" {
		return QRJob{}, ErrBadJobPayload
	}
	return job, nil
}

// AnalyticsJob представляет задание на учёт одного перехода по ссылке.
// IP опционален: без него уникальные посетители не учитываются.
type AnalyticsJob struct {
	ShortID string
	IP      string
}

// Fields сериализует задание в поля записи потока
func (j AnalyticsJob) Fields() map[string]string {
	fields := map[string]string{
		"short_id": j.ShortID,
	}
	if j.IP != "" {
		fields["ip"] = j.IP
	}
	return fields
}

// AnalyticsJobFromFields восстанавливает задание из полей записи потока
func AnalyticsJobFromFields(fields map[string]string) (AnalyticsJob, error) {
	job := AnalyticsJob{
		ShortID: fields["short_id"],
		IP:      fields["ip"],
	}
	if job.ShortID == "" {
		return AnalyticsJob{}, ErrBadJobPayload
	}
	return job, nil
}
