package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

var zapLevelMap = map[string]zapcore.Level{
	"debug": zapcore.DebugLevel,
	"info":  zapcore.InfoLevel,
	"warn":  zapcore.WarnLevel,
	"error": zapcore.ErrorLevel,
	"fatal": zapcore.FatalLevel,
}

type zapLogger struct {
	cfg    *LoggerConfig
	logger *zap.SugaredLogger
}

func newZapLogger(cfg *LoggerConfig) *zapLogger {
	l := &zapLogger{cfg: cfg}
	l.Init()
	return l
}

func (l *zapLogger) level() zapcore.Level {
	if lvl, ok := zapLevelMap[l.cfg.Level]; ok {
		return lvl
	}
	return zapcore.InfoLevel
}

func (l *zapLogger) Init() {
	once.Do(func() {
		var encoder zapcore.Encoder
		encoderCfg := zap.NewProductionEncoderConfig()
		encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

		if l.cfg.Encoding == "console" {
			encoder = zapcore.NewConsoleEncoder(encoderCfg)
		} else {
			encoder = zapcore.NewJSONEncoder(encoderCfg)
		}

		sink := zapcore.AddSync(os.Stdout)
		if l.cfg.FilePath != "" {
			rotator := &lumberjack.Logger{
				Filename:   l.cfg.FilePath,
				MaxSize:    20, // megabytes
				MaxBackups: 5,
				MaxAge:     28, // days
				Compress:   true,
			}
			sink = zapcore.NewMultiWriteSyncer(zapcore.AddSync(os.Stdout), zapcore.AddSync(rotator))
		}

		core := zapcore.NewCore(encoder, sink, l.level())
		base := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))

		zapSugared = base.Sugar().With(string(AppName), "castrelay", string(LoggerName), "zap")
	})

	l.logger = zapSugared
}

var zapSugared *zap.SugaredLogger

func (l *zapLogger) with(cat Category, sub SubCategory, extra map[ExtraKey]any) []any {
	params := logParamsToZapParams(extra)
	params = append(params, "Category", string(cat), "SubCategory", string(sub))
	return params
}

func (l *zapLogger) Debug(cat Category, sub SubCategory, msg string, extra map[ExtraKey]any) {
	l.logger.Debugw(msg, l.with(cat, sub, extra)...)
}

func (l *zapLogger) Debugf(template string, args ...any) {
	l.logger.Debugf(template, args...)
}

func (l *zapLogger) Info(cat Category, sub SubCategory, msg string, extra map[ExtraKey]any) {
	l.logger.Infow(msg, l.with(cat, sub, extra)...)
}

func (l *zapLogger) Infof(template string, args ...any) {
	l.logger.Infof(template, args...)
}

func (l *zapLogger) Warn(cat Category, sub SubCategory, msg string, extra map[ExtraKey]any) {
	l.logger.Warnw(msg, l.with(cat, sub, extra)...)
}

func (l *zapLogger) Warnf(template string, args ...any) {
	l.logger.Warnf(template, args...)
}

func (l *zapLogger) Error(cat Category, sub SubCategory, msg string, extra map[ExtraKey]any) {
	l.logger.Errorw(msg, l.with(cat, sub, extra)...)
}

func (l *zapLogger) Errorf(template string, args ...any) {
	l.logger.Errorf(template, args...)
}

func (l *zapLogger) Fatal(cat Category, sub SubCategory, msg string, extra map[ExtraKey]any) {
	l.logger.Fatalw(msg, l.with(cat, sub, extra)...)
}

func (l *zapLogger) Fatalf(template string, args ...any) {
	l.logger.Fatalf(template, args...)
}
