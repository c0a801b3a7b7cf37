package consumer

import (
	"encoding/json"
	"fmt"
)

// CallbackMessage — расшифрованный payload очереди. Транзитный, не персистится.
type CallbackMessage struct {
	TaskID        string `json:"taskId"`
	AssessorEmail string `json:"assessorEmail"`
	Title         string `json:"title"` // опционален, пустая строка по умолчанию
	TaskToken     string `json:"taskToken"`
}

// MalformedPayloadError — обе попытки декодирования провалились.
// Несем исходное тело целиком: без него оператору нечего диагностировать,
// сообщение будет падать одинаково на каждой повторной доставке.
type MalformedPayloadError struct {
	Raw []byte
	Err error
}

func (e *MalformedPayloadError) Error() string {
	return fmt.Sprintf("malformed callback payload: %v (raw: %s)", e.Err, e.Raw)
}

func (e *MalformedPayloadError) Unwrap() error { return e.Err }

// decodeAttempts — явный список стратегий разбора. Новая кодировка — новый
// элемент списка, а не еще один уровень вложенности обработки ошибок.
var decodeAttempts = []func(raw []byte) (CallbackMessage, error){
	decodeDirect,
	decodeNested,
}

// Decode превращает сырое тело сообщения в CallbackMessage.
// Очередь иногда доставляет payload, завернутый в JSON-строку (двойное
// кодирование на стороне оркестратора) — поэтому попыток две.
func Decode(raw []byte) (CallbackMessage, error) {
	var lastErr error
	for _, attempt := range decodeAttempts {
		msg, err := attempt(raw)
		if err != nil {
			lastErr = err
			continue
		}
		if err := validate(msg); err != nil {
			lastErr = err
			continue
		}
		return msg, nil
	}
	return CallbackMessage{}, &MalformedPayloadError{Raw: raw, Err: lastErr}
}

func decodeDirect(raw []byte) (CallbackMessage, error) {
	var msg CallbackMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return CallbackMessage{}, err
	}
	return msg, nil
}

func decodeNested(raw []byte) (CallbackMessage, error) {
	// Сначала снимаем один уровень: тело — это JSON-строка, внутри которой JSON
	var inner string
	if err := json.Unmarshal(raw, &inner); err != nil {
		return CallbackMessage{}, err
	}
	return decodeDirect([]byte(inner))
}

// validate — проверка обязательных полей на границе, а не внутри ядра.
func validate(msg CallbackMessage) error {
	if msg.TaskID == "" {
		return fmt.Errorf("missing taskId")
	}
	if msg.TaskToken == "" {
		return fmt.Errorf("missing taskToken")
	}
	return nil
}
