// Copyright (c) 2023-2026 Voicegraph Contributors
//
// Licensed under GPL-2.0 with Voicegraph Additional Terms.
// See LICENSE.md for details.

package stt

import (
	"context"
	"fmt"
	"sync"

	"github.com/Microsoft/cognitive-services-speech-sdk-go/audio"
	msspeech "github.com/Microsoft/cognitive-services-speech-sdk-go/speech"
)

// AzureAdapter is an alternate STT provider backed by Azure Cognitive
// Speech continuous recognition.
type AzureAdapter struct {
	subscriptionKey, region string

	mu        sync.Mutex
	recognizer *msspeech.SpeechRecognizer
	pushStream *audio.PushAudioInputStream
	results    chan Hypothesis
}

func NewAzureAdapter(subscriptionKey, region string) *AzureAdapter {
	return &AzureAdapter{subscriptionKey: subscriptionKey, region: region, results: make(chan Hypothesis, 32)}
}

func (a *AzureAdapter) Start(ctx context.Context) error {
	speechConfig, err := msspeech.NewSpeechConfigFromSubscription(a.subscriptionKey, a.region)
	if err != nil {
		return fmt.Errorf("stt: azure config: %w", err)
	}
	defer speechConfig.Close()

	push, err := audio.CreatePushAudioInputStream()
	if err != nil {
		return fmt.Errorf("stt: azure push stream: %w", err)
	}
	audioCfg, err := audio.NewAudioConfigFromStreamInput(push)
	if err != nil {
		return fmt.Errorf("stt: azure audio config: %w", err)
	}
	defer audioCfg.Close()

	recognizer, err := msspeech.NewSpeechRecognizerFromConfig(speechConfig, audioCfg)
	if err != nil {
		return fmt.Errorf("stt: azure recognizer: %w", err)
	}

	recognizer.Recognizing(func(event msspeech.SpeechRecognitionEventArgs) {
		defer event.Close()
		a.emit(event.Result.Text, false)
	})
	recognizer.Recognized(func(event msspeech.SpeechRecognitionEventArgs) {
		defer event.Close()
		a.emit(event.Result.Text, true)
	})

	if err := <-recognizer.StartContinuousRecognitionAsync(); err != nil {
		return fmt.Errorf("stt: azure start recognition: %w", err)
	}

	a.mu.Lock()
	a.recognizer = recognizer
	a.pushStream = push
	a.mu.Unlock()
	return nil
}

func (a *AzureAdapter) emit(text string, final bool) {
	if text == "" {
		return
	}
	select {
	case a.results <- Hypothesis{Text: text, Final: final}:
	default:
	}
}

func (a *AzureAdapter) SendAudio(_ context.Context, pcm16 []byte, _ int) error {
	a.mu.Lock()
	push := a.pushStream
	a.mu.Unlock()
	if push == nil {
		return fmt.Errorf("stt: azure: not connected")
	}
	return push.Write(pcm16)
}

func (a *AzureAdapter) Results() <-chan Hypothesis { return a.results }

func (a *AzureAdapter) Stop() error {
	a.mu.Lock()
	recognizer, push := a.recognizer, a.pushStream
	a.recognizer, a.pushStream = nil, nil
	a.mu.Unlock()

	if recognizer != nil {
		<-recognizer.StopContinuousRecognitionAsync()
		recognizer.Close()
	}
	if push != nil {
		push.CloseStream()
	}
	close(a.results)
	return nil
}
